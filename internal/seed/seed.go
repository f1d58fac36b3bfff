package seed

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

// DefaultPassword is shared by every demo account.
const DefaultPassword = "password123"

// Target is the part of the in-memory collaborator the seeder writes through.
type Target interface {
	AddCourse(course models.Course)
	ReplaceAvailability(ctx context.Context, token, userID string, slots []string) error
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) error
	Enroll(ctx context.Context, token, courseID, userID string) error
	CreateGroup(ctx context.Context, token string, group models.NewGroup) (string, error)
	JoinGroup(ctx context.Context, token, groupID, userID string) error
}

type demoUser struct {
	email        string
	name         string
	major        string
	year         string
	bio          string
	prefs        models.StudyPreferences
	courses      []string
	availability []string
}

type demoGroup struct {
	name        string
	courseID    string
	owner       string
	members     []string
	description string
	meetingTime string
	location    string
	maxMembers  int
	tags        []string
}

var courses = []models.Course{
	{ID: "CS1101", Code: "CS 1101", Name: "Introduction to Computer Science", Section: "001", Instructor: "Dr. Sarah Johnson", Schedule: "MWF 9:00-10:00 AM", Building: "Engineering Hall", Room: "201"},
	{ID: "CS2201", Code: "CS 2201", Name: "Data Structures and Algorithms", Section: "002", Instructor: "Prof. Michael Chen", Schedule: "TR 2:00-3:30 PM", Building: "Science Building", Room: "315"},
	{ID: "CS3310", Code: "CS 3310", Name: "Database Systems", Section: "001", Instructor: "Dr. Emily Rodriguez", Schedule: "MWF 11:00-12:00 PM", Building: "Engineering Hall", Room: "405"},
	{ID: "CS4090", Code: "CS 4090", Name: "Capstone Project I", Section: "001", Instructor: "Prof. David Williams", Schedule: "MW 3:00-4:30 PM", Building: "Innovation Center", Room: "102"},
	{ID: "MATH2410", Code: "MATH 2410", Name: "Discrete Mathematics", Section: "003", Instructor: "Dr. Lisa Anderson", Schedule: "TR 9:30-11:00 AM", Building: "Math Building", Room: "210"},
	{ID: "CS3320", Code: "CS 3320", Name: "Web Development", Section: "001", Instructor: "Prof. James Martinez", Schedule: "TR 12:30-2:00 PM", Building: "Engineering Hall", Room: "301"},
	{ID: "CS2301", Code: "CS 2301", Name: "Computer Architecture", Section: "002", Instructor: "Dr. Robert Taylor", Schedule: "MWF 1:00-2:00 PM", Building: "Science Building", Room: "220"},
	{ID: "CS3380", Code: "CS 3380", Name: "Artificial Intelligence", Section: "001", Instructor: "Dr. Amanda Lee", Schedule: "TR 3:30-5:00 PM", Building: "Innovation Center", Room: "205"},
}

var users = []demoUser{
	{
		email: "alice.smith@university.edu", name: "Alice Smith", major: "Computer Science", year: "Junior",
		bio:          "Love coding and collaborative learning. Looking for serious study partners!",
		prefs:        models.StudyPreferences{PreferredTimes: []string{"Morning", "Afternoon"}, Style: "Group Discussion"},
		courses:      []string{"CS2201", "CS3310", "MATH2410"},
		availability: []string{"Monday 10am-12pm", "Wednesday 2pm-4pm", "Friday 1pm-3pm"},
	},
	{
		email: "bob.johnson@university.edu", name: "Bob Johnson", major: "Computer Science", year: "Senior",
		bio:          "Senior CS major, happy to help underclassmen. Work-study friendly hours.",
		prefs:        models.StudyPreferences{PreferredTimes: []string{"Evening", "Weekend"}, Style: "One-on-One"},
		courses:      []string{"CS4090", "CS3380"},
		availability: []string{"Tuesday 6pm-8pm", "Thursday 6pm-8pm", "Saturday 10am-2pm"},
	},
	{
		email: "carol.williams@university.edu", name: "Carol Williams", major: "Software Engineering", year: "Sophomore",
		bio:          "Passionate about web dev and databases. Let's build projects together!",
		prefs:        models.StudyPreferences{PreferredTimes: []string{"Afternoon", "Evening"}, Style: "Group Discussion"},
		courses:      []string{"CS2201", "CS3320", "CS3310"},
		availability: []string{"Monday 3pm-5pm", "Wednesday 3pm-5pm", "Friday 4pm-6pm"},
	},
	{
		email: "david.brown@university.edu", name: "David Brown", major: "Computer Science", year: "Junior",
		bio:          "Early bird coder. Prefer morning study sessions and structured learning.",
		prefs:        models.StudyPreferences{PreferredTimes: []string{"Morning"}, Style: "Structured Study"},
		courses:      []string{"CS2301", "MATH2410", "CS3310"},
		availability: []string{"Monday 8am-10am", "Wednesday 8am-10am", "Friday 9am-11am"},
	},
	{
		email: "emma.davis@university.edu", name: "Emma Davis", major: "Data Science", year: "Junior",
		bio:          "Data enthusiast! Looking for project partners and algorithm study buddies.",
		prefs:        models.StudyPreferences{PreferredTimes: []string{"Afternoon", "Evening"}, Style: "Project-Based"},
		courses:      []string{"CS2201", "CS3380", "MATH2410"},
		availability: []string{"Tuesday 2pm-5pm", "Thursday 2pm-5pm"},
	},
	{
		email: "frank.miller@university.edu", name: "Frank Miller", major: "Computer Science", year: "Senior",
		bio:          "Final year CS student. Capstone partner needed. Also tutoring data structures.",
		prefs:        models.StudyPreferences{PreferredTimes: []string{"Afternoon", "Weekend"}, Style: "Project-Based"},
		courses:      []string{"CS4090", "CS3380"},
		availability: []string{"Monday 1pm-4pm", "Wednesday 1pm-4pm", "Saturday 2pm-6pm"},
	},
}

var groups = []demoGroup{
	{
		name: "Data Structures Study Circle", courseID: "CS2201", owner: "alice.smith@university.edu",
		members:     []string{"carol.williams@university.edu", "emma.davis@university.edu"},
		description: "Weekly meetups to go over lecture material and practice coding problems together.",
		meetingTime: "Wednesdays 3:00 PM", location: "Library Study Room 3B", maxMembers: 6,
		tags: []string{"Algorithms", "Coding Practice", "Weekly Meetings"},
	},
	{
		name: "Capstone Project Team Alpha", courseID: "CS4090", owner: "bob.johnson@university.edu",
		members:     []string{"frank.miller@university.edu"},
		description: "Building a student matching platform. Need frontend and backend developers.",
		meetingTime: "Mondays & Wednesdays 4:00 PM", location: "Innovation Center Room 102", maxMembers: 4,
		tags: []string{"Project Team", "Full Stack", "Agile"},
	},
	{
		name: "Database Design Workshop", courseID: "CS3310", owner: "alice.smith@university.edu",
		members:     []string{"carol.williams@university.edu", "david.brown@university.edu"},
		description: "Hands-on practice with SQL, normalization, and database design patterns.",
		meetingTime: "Fridays 2:00 PM", location: "Engineering Hall Lab 405", maxMembers: 5,
		tags: []string{"SQL", "Database Design", "Hands-on"},
	},
	{
		name: "AI & ML Study Group", courseID: "CS3380", owner: "emma.davis@university.edu",
		members:     []string{"bob.johnson@university.edu", "frank.miller@university.edu"},
		description: "Exploring machine learning algorithms and AI concepts. Python heavy!",
		meetingTime: "Thursdays 5:30 PM", location: "Online (Discord)", maxMembers: 8,
		tags: []string{"Machine Learning", "Python", "Theory + Practice"},
	},
}

// CreateDefaultData loads the demo catalog, accounts, enrollments and groups.
// Individual failures are logged and joined; seeding keeps going past them.
func CreateDefaultData(ctx context.Context, target Target, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("seeding demo data", zap.Int("courses", len(courses)), zap.Int("users", len(users)), zap.Int("groups", len(groups)))

	for _, course := range courses {
		target.AddCourse(course)
	}

	var finalErr error
	ids := make(map[string]string, len(users))
	for _, u := range users {
		id, err := ensureUser(ctx, target, u)
		if err != nil {
			logger.Error("failed to seed user", zap.String("email", u.email), zap.Error(err))
			finalErr = errors.Join(finalErr, err)
			continue
		}
		ids[u.email] = id

		for _, courseID := range u.courses {
			err := target.Enroll(ctx, "", courseID, id)
			if err != nil && !errors.Is(err, appErrors.ErrConflict) {
				logger.Error("failed to seed enrollment", zap.String("email", u.email), zap.String("course_id", courseID), zap.Error(err))
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	for _, g := range groups {
		ownerID, ok := ids[g.owner]
		if !ok {
			continue
		}
		groupID, err := target.CreateGroup(ctx, "", models.NewGroup{
			OwnerID:     ownerID,
			CourseID:    g.courseID,
			Name:        g.name,
			Description: g.description,
			MeetingTime: g.meetingTime,
			Location:    g.location,
			MaxMembers:  g.maxMembers,
			Tags:        g.tags,
		})
		if err != nil {
			logger.Error("failed to seed group", zap.String("group", g.name), zap.Error(err))
			finalErr = errors.Join(finalErr, err)
			continue
		}
		for _, email := range g.members {
			memberID, ok := ids[email]
			if !ok {
				continue
			}
			if err := target.JoinGroup(ctx, "", groupID, memberID); err != nil && !errors.Is(err, appErrors.ErrAlreadyMember) {
				logger.Error("failed to seed membership", zap.String("group", g.name), zap.String("email", email), zap.Error(err))
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	return finalErr
}

// ensureUser registers the account, or resolves its id when it already exists.
func ensureUser(ctx context.Context, target Target, u demoUser) (string, error) {
	id, err := target.Register(ctx, models.RegisterRequest{
		Email:    u.email,
		Password: DefaultPassword,
		Name:     u.name,
		Major:    u.major,
		Year:     u.year,
		Bio:      u.bio,
	})
	if errors.Is(err, appErrors.ErrConflict) {
		res, loginErr := target.Login(ctx, models.LoginRequest{Email: u.email, Password: DefaultPassword})
		if loginErr != nil {
			return "", loginErr
		}
		return res.User.ID, nil
	}
	if err != nil {
		return "", err
	}

	prefs := u.prefs
	if err := target.UpdateProfile(ctx, "", id, models.ProfileUpdate{StudyPrefs: &prefs}); err != nil {
		return "", err
	}
	if err := target.ReplaceAvailability(ctx, "", id, u.availability); err != nil {
		return "", err
	}
	return id, nil
}
