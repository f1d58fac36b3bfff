package repository

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/classmatch-api/internal/models"
)

// Wire shapes of the collaborator. The backend is loose about field names and
// types; every variant is folded into the canonical models here and nowhere else.

// flexID accepts numeric or string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexInt accepts numbers, numeric strings, booleans and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	raw := strings.Trim(string(b), `"`)
	switch raw {
	case "", "false":
		*f = 0
		return nil
	case "true":
		*f = 1
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*f = flexInt(int(n))
	return nil
}

// flexStrings accepts a JSON list, a JSON-encoded list inside a string, or a
// comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = nil
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*f = cleanStrings(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*f = cleanStrings(list)
			return nil
		}
	}
	*f = cleanStrings(strings.Split(s, ","))
	return nil
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// flexTime accepts RFC3339, HTTP dates (Flask's default) and MySQL datetimes.
type flexTime time.Time

var timeLayouts = []string{time.RFC3339Nano, http.TimeFormat, time.RFC1123Z, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		*f = flexTime(time.Time{})
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t.UTC())
			return nil
		}
	}
	*f = flexTime(time.Time{})
	return nil
}

// flexPrefs accepts study preferences as an object or as a JSON string.
type flexPrefs models.StudyPreferences

func (f *flexPrefs) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		b = []byte(s)
	}
	var raw struct {
		PreferredTimes flexStrings `json:"preferred_times"`
		Times          flexStrings `json:"times"`
		Style          string      `json:"style"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		// free-text preferences are kept as the style
		*f = flexPrefs{Style: string(b)}
		return nil
	}
	times := raw.PreferredTimes
	if len(times) == 0 {
		times = raw.Times
	}
	*f = flexPrefs{PreferredTimes: times, Style: raw.Style}
	return nil
}

type wireUser struct {
	ID         flexID      `json:"id"`
	UserID     flexID      `json:"user_id"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Major      string      `json:"major"`
	Year       flexID      `json:"year"`
	Bio        string      `json:"bio"`
	Avatar     string      `json:"avatar"`
	StudyPrefs flexPrefs   `json:"study_prefs"`
	CourseIDs  flexStrings `json:"course_ids"`
	Courses    flexStrings `json:"courses"`
	// candidate rows from the matches query
	SharedCourseIDs   flexStrings `json:"shared_course_ids"`
	SharedCourseCodes flexStrings `json:"shared_course_codes"`
	SharedCount       flexInt     `json:"shared_courses"`
}

func (w wireUser) toModel() models.User {
	id := w.ID
	if id == "" {
		id = w.UserID
	}
	courses := []string(w.CourseIDs)
	if len(courses) == 0 {
		courses = w.Courses
	}
	return models.User{
		ID:         string(id),
		Email:      w.Email,
		Name:       w.Name,
		Major:      w.Major,
		Year:       string(w.Year),
		Bio:        w.Bio,
		Avatar:     w.Avatar,
		StudyPrefs: models.StudyPreferences(w.StudyPrefs),
		CourseIDs:  courses,
	}
}

// candidateCourses resolves the candidate's course ids. Rows from the matches
// query only carry course codes, which are mapped through the reference user's
// own catalog (codeToID) since shared codes are by definition in it.
func (w wireUser) candidateCourses(codeToID map[string]string) []string {
	if len(w.CourseIDs) > 0 {
		return w.CourseIDs
	}
	if len(w.SharedCourseIDs) > 0 {
		return w.SharedCourseIDs
	}
	ids := make([]string, 0, len(w.SharedCourseCodes))
	for _, code := range w.SharedCourseCodes {
		if id, ok := codeToID[code]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

type wireCourse struct {
	ID            flexID  `json:"id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Section       flexID  `json:"section"`
	Instructor    string  `json:"instructor"`
	Schedule      string  `json:"schedule"`
	Building      string  `json:"building"`
	Room          flexID  `json:"room"`
	EnrolledCount flexInt `json:"enrolled_count"`
	Students      flexInt `json:"students"`
}

func (w wireCourse) toModel() models.Course {
	count := w.EnrolledCount
	if count == 0 {
		count = w.Students
	}
	return models.Course{
		ID:            string(w.ID),
		Code:          w.Code,
		Name:          w.Name,
		Section:       string(w.Section),
		Instructor:    w.Instructor,
		Schedule:      w.Schedule,
		Building:      w.Building,
		Room:          string(w.Room),
		EnrolledCount: int(count),
	}
}

type wireSlot struct {
	ID   flexID `json:"id"`
	Slot string `json:"slot"`
}

type wireOverview struct {
	User         wireUser     `json:"user"`
	Courses      []wireCourse `json:"courses"`
	Availability []wireSlot   `json:"availability"`
}

func (w wireOverview) toModel() models.Overview {
	out := models.Overview{
		User:         w.User.toModel(),
		Courses:      make([]models.Course, 0, len(w.Courses)),
		Availability: make([]models.AvailabilitySlot, 0, len(w.Availability)),
	}
	for _, c := range w.Courses {
		out.Courses = append(out.Courses, c.toModel())
	}
	for _, s := range w.Availability {
		out.Availability = append(out.Availability, models.AvailabilitySlot{ID: string(s.ID), Slot: s.Slot})
	}
	out.User.CourseIDs = out.CourseIDs()
	return out
}

type wireMember struct {
	ID     flexID `json:"id"`
	UserID flexID `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type wireGroup struct {
	ID            flexID       `json:"id"`
	GroupID       flexID       `json:"group_id"`
	Name          string       `json:"name"`
	OwnerID       flexID       `json:"owner_id"`
	OwnerUserID   flexID       `json:"owner_user_id"`
	OwnerName     string       `json:"owner_name"`
	CourseID      flexID       `json:"course_id"`
	CourseCode    string       `json:"course_code"`
	Description   string       `json:"description"`
	MeetingTime   string       `json:"meeting_time"`
	Location      string       `json:"location"`
	MaxMembers    flexInt      `json:"max_members"`
	MaxMembersAlt flexInt      `json:"maxMembers"`
	Tags          flexStrings  `json:"tags"`
	Members       []wireMember `json:"members"`
	MemberCount   flexInt      `json:"member_count"`
	IsArchived    flexInt      `json:"is_archived"`
	CreatedAt     flexTime     `json:"created_at"`
}

func (w wireGroup) toModel() models.Group {
	id := w.ID
	if id == "" {
		id = w.GroupID
	}
	owner := w.OwnerID
	if owner == "" {
		owner = w.OwnerUserID
	}
	maxMembers := int(w.MaxMembers)
	if maxMembers == 0 {
		maxMembers = int(w.MaxMembersAlt)
	}
	g := models.Group{
		ID:          string(id),
		Name:        w.Name,
		OwnerID:     string(owner),
		OwnerName:   w.OwnerName,
		CourseID:    string(w.CourseID),
		CourseCode:  w.CourseCode,
		Description: w.Description,
		MeetingTime: w.MeetingTime,
		Location:    w.Location,
		MaxMembers:  maxMembers,
		Tags:        []string(w.Tags),
		Members:     make([]models.GroupMember, 0, len(w.Members)),
		Archived:    w.IsArchived != 0,
		CreatedAt:   time.Time(w.CreatedAt),
	}
	if g.Tags == nil {
		g.Tags = []string{}
	}
	for _, m := range w.Members {
		if m.Status != "" && m.Status != "active" {
			continue
		}
		uid := m.UserID
		if uid == "" {
			uid = m.ID
		}
		role := models.GroupRole(m.Role)
		if role == "" {
			role = models.GroupRoleMember
		}
		g.Members = append(g.Members, models.GroupMember{UserID: string(uid), Name: m.Name, Role: role})
	}
	// list rows only carry a count; keep capacity checks meaningful with placeholders
	if len(w.Members) == 0 && w.MemberCount > 0 {
		for i := 0; i < int(w.MemberCount); i++ {
			g.Members = append(g.Members, models.GroupMember{Role: models.GroupRoleMember})
		}
	}
	return g
}

type wireNotification struct {
	ID        flexID          `json:"id"`
	UserID    flexID          `json:"user_id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	IsRead    flexInt         `json:"is_read"`
	CreatedAt flexTime        `json:"created_at"`
}

type wirePayload struct {
	GroupID   flexID `json:"group_id"`
	GroupName string `json:"group_name"`
	CourseID  flexID `json:"course_id"`
}

func (w wireNotification) toModel(userID string) (models.Notification, error) {
	n := models.Notification{
		ID:        string(w.ID),
		UserID:    string(w.UserID),
		Type:      models.NotificationType(w.Type),
		Read:      w.IsRead != 0,
		CreatedAt: time.Time(w.CreatedAt),
	}
	if n.UserID == "" {
		n.UserID = userID
	}
	data := bytes.TrimSpace(w.Data)
	if len(data) > 0 && data[0] == '"' {
		// the backend stores data as a JSON document inside a string
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return n, err
		}
		data = bytes.TrimSpace([]byte(s))
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return n, nil
	}
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return n, err
	}
	n.Payload = models.InvitationPayload{GroupID: string(p.GroupID), GroupName: p.GroupName, CourseID: string(p.CourseID)}
	return n, nil
}

type wireMessage struct {
	ID         flexID   `json:"id"`
	GroupID    flexID   `json:"group_id"`
	UserID     flexID   `json:"user_id"`
	AuthorName string   `json:"author_name"`
	Content    string   `json:"content"`
	CreatedAt  flexTime `json:"created_at"`
}

func (w wireMessage) toModel(groupID string) models.Message {
	m := models.Message{
		ID:         string(w.ID),
		GroupID:    string(w.GroupID),
		UserID:     string(w.UserID),
		AuthorName: w.AuthorName,
		Content:    w.Content,
		CreatedAt:  time.Time(w.CreatedAt),
	}
	if m.GroupID == "" {
		m.GroupID = groupID
	}
	return m
}

// commandResult is the `{ok, ...id}` envelope returned by command endpoints.
type commandResult struct {
	OK             bool     `json:"ok"`
	UserID         flexID   `json:"user_id"`
	GroupID        flexID   `json:"group_id"`
	NotificationID flexID   `json:"notification_id"`
	MessageID      flexID   `json:"message_id"`
	SlotID         flexID   `json:"slot_id"`
	UpdatedCount   flexInt  `json:"updated_count"`
	User           wireUser `json:"user"`
	Token          string   `json:"token"`
	AccessToken    string   `json:"access_token"`
	Error          string   `json:"error"`
}
