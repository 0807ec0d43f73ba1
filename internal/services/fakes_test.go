package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/types"
)

// In-memory repo fakes. Services issue sequential calls with a nil tx, so the
// fakes ignore the tx argument entirely.

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
}

func (f *fakeUserRepo) add(u *types.User) *types.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	for _, u := range users {
		f.add(u)
	}
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.User, error) {
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpsertByExternalID(ctx context.Context, tx *gorm.DB, user *types.User) error {
	for _, u := range f.users {
		if u.ExternalID == user.ExternalID {
			u.Email = user.Email
			u.Name = user.Name
			*user = *u
			return nil
		}
	}
	f.add(user)
	return nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.UserRole) error {
	if u, ok := f.users[userID]; ok {
		u.Role = role
	}
	return nil
}

func (f *fakeUserRepo) UpdateBanned(ctx context.Context, tx *gorm.DB, userID uuid.UUID, banned bool) error {
	if u, ok := f.users[userID]; ok {
		u.IsBanned = banned
	}
	return nil
}

func (f *fakeUserRepo) UpdateBillingCustomerID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, customerID string) error {
	if u, ok := f.users[userID]; ok {
		u.BillingCustomerID = customerID
	}
	return nil
}

func (f *fakeUserRepo) UpdateAvatarFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bucketKey, avatarURL string) error {
	if u, ok := f.users[userID]; ok {
		u.AvatarBucketKey = bucketKey
		u.AvatarURL = avatarURL
	}
	return nil
}

func (f *fakeUserRepo) SoftDeleteByExternalID(ctx context.Context, tx *gorm.DB, externalID string) error {
	for id, u := range f.users {
		if u.ExternalID == externalID {
			delete(f.users, id)
		}
	}
	return nil
}

type fakeCourseRepo struct {
	courses map[uuid.UUID]*types.Course
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: map[uuid.UUID]*types.Course{}}
}

func (f *fakeCourseRepo) add(c *types.Course) *types.Course {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.courses[c.ID] = c
	return c
}

func (f *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	for _, c := range courses {
		f.add(c)
	}
	return courses, nil
}

func (f *fakeCourseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	var out []*types.Course
	for _, id := range courseIDs {
		if c, ok := f.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Course, error) {
	for _, c := range f.courses {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCourseRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Course, error) {
	var out []*types.Course
	for _, c := range f.courses {
		for _, id := range userIDs {
			if c.UserID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) ListPublished(ctx context.Context, tx *gorm.DB, category string) ([]*types.Course, error) {
	var out []*types.Course
	for _, c := range f.courses {
		if c.Status != types.CoursePublished {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourseRepo) SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	c, _ := f.GetBySlug(ctx, tx, slug)
	return c != nil, nil
}

func (f *fakeCourseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, fields map[string]any) error {
	c, ok := f.courses[courseID]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "title":
			c.Title = v.(string)
		case "description":
			c.Description = v.(string)
		case "price":
			c.Price = v.(float64)
		case "price_ref":
			c.PriceRef = v.(string)
		case "category":
			c.Category = v.(string)
		case "level":
			c.Level = v.(types.CourseLevel)
		}
	}
	return nil
}

func (f *fakeCourseRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, status types.CourseStatus) error {
	if c, ok := f.courses[courseID]; ok {
		c.Status = status
	}
	return nil
}

func (f *fakeCourseRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	for _, id := range courseIDs {
		delete(f.courses, id)
	}
	return nil
}

type fakeChapterRepo struct {
	chapters map[uuid.UUID]*types.Chapter
}

func newFakeChapterRepo() *fakeChapterRepo {
	return &fakeChapterRepo{chapters: map[uuid.UUID]*types.Chapter{}}
}

func (f *fakeChapterRepo) add(ch *types.Chapter) *types.Chapter {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	f.chapters[ch.ID] = ch
	return ch
}

func (f *fakeChapterRepo) Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error) {
	for _, ch := range chapters {
		f.add(ch)
	}
	return chapters, nil
}

func (f *fakeChapterRepo) GetByID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (*types.Chapter, error) {
	return f.chapters[chapterID], nil
}

func (f *fakeChapterRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error) {
	var out []*types.Chapter
	for _, ch := range f.chapters {
		if ch.CourseID == courseID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeChapterRepo) MaxPosition(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error) {
	max := 0
	for _, ch := range f.chapters {
		if ch.CourseID == courseID && ch.Position > max {
			max = ch.Position
		}
	}
	return max, nil
}

func (f *fakeChapterRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, title string) error {
	if ch, ok := f.chapters[chapterID]; ok {
		ch.Title = title
	}
	return nil
}

func (f *fakeChapterRepo) DeleteAndRenumber(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) error {
	ch, ok := f.chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	courseID := ch.CourseID
	delete(f.chapters, chapterID)
	remaining, _ := f.GetByCourseID(ctx, tx, courseID)
	for i, r := range remaining {
		r.Position = i + 1
	}
	return nil
}

func (f *fakeChapterRepo) Reorder(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, orderedIDs []uuid.UUID) error {
	for i, id := range orderedIDs {
		ch, ok := f.chapters[id]
		if !ok || ch.CourseID != courseID {
			return fmt.Errorf("chapter %s not in course", id)
		}
		ch.Position = i + 1
	}
	return nil
}

func (f *fakeChapterRepo) FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	for id, ch := range f.chapters {
		for _, courseID := range courseIDs {
			if ch.CourseID == courseID {
				delete(f.chapters, id)
			}
		}
	}
	return nil
}

type fakeLessonRepo struct {
	lessons map[uuid.UUID]*types.Lesson
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{lessons: map[uuid.UUID]*types.Lesson{}}
}

func (f *fakeLessonRepo) add(l *types.Lesson) *types.Lesson {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	f.lessons[l.ID] = l
	return l
}

func (f *fakeLessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	for _, l := range lessons {
		f.add(l)
	}
	return lessons, nil
}

func (f *fakeLessonRepo) GetByID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, error) {
	return f.lessons[lessonID], nil
}

func (f *fakeLessonRepo) GetByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Lesson, error) {
	var out []*types.Lesson
	for _, l := range f.lessons {
		for _, id := range chapterIDs {
			if l.ChapterID == id {
				out = append(out, l)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeLessonRepo) MaxPosition(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (int, error) {
	max := 0
	for _, l := range f.lessons {
		if l.ChapterID == chapterID && l.Position > max {
			max = l.Position
		}
	}
	return max, nil
}

func (f *fakeLessonRepo) UpdateFields(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, fields map[string]any) error {
	l, ok := f.lessons[lessonID]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "title":
			l.Title = v.(string)
		case "is_free":
			l.IsFree = v.(bool)
		case "video_url":
			l.VideoURL = v.(string)
		case "video_bucket_key":
			l.VideoBucketKey = v.(string)
		case "duration_seconds":
			l.DurationSeconds = v.(float64)
		}
	}
	return nil
}

func (f *fakeLessonRepo) DeleteAndRenumber(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error {
	l, ok := f.lessons[lessonID]
	if !ok {
		return fmt.Errorf("lesson %s not found", lessonID)
	}
	chapterID := l.ChapterID
	delete(f.lessons, lessonID)
	remaining, _ := f.GetByChapterIDs(ctx, tx, []uuid.UUID{chapterID})
	for i, r := range remaining {
		r.Position = i + 1
	}
	return nil
}

func (f *fakeLessonRepo) FullDeleteByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) error {
	for id, l := range f.lessons {
		for _, chapterID := range chapterIDs {
			if l.ChapterID == chapterID {
				delete(f.lessons, id)
			}
		}
	}
	return nil
}

type fakeEnrollmentRepo struct {
	enrollments map[uuid.UUID]*types.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: map[uuid.UUID]*types.Enrollment{}}
}

func (f *fakeEnrollmentRepo) add(e *types.Enrollment) *types.Enrollment {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.enrollments[e.ID] = e
	return e
}

func (f *fakeEnrollmentRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEnrollmentRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	for _, e := range f.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	for _, e := range f.enrollments {
		for _, id := range courseIDs {
			if e.CourseID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) CountActiveByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.enrollments {
		if e.CourseID == courseID && e.Status == types.EnrollmentActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollmentRepo) UpsertPending(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, amount float64) (*types.Enrollment, error) {
	existing, _ := f.GetByUserAndCourse(ctx, tx, userID, courseID)
	if existing != nil {
		if existing.Status == types.EnrollmentActive {
			return existing, nil
		}
		existing.Status = types.EnrollmentPending
		existing.Amount = amount
		return existing, nil
	}
	return f.add(&types.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   types.EnrollmentPending,
		Amount:   amount,
	}), nil
}

func (f *fakeEnrollmentRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Enrollment) (repos.CreateOutcome, error) {
	existing, _ := f.GetByUserAndCourse(ctx, tx, row.UserID, row.CourseID)
	if existing != nil {
		return repos.OutcomeAlreadyExists, nil
	}
	f.add(row)
	return repos.OutcomeCreated, nil
}

func (f *fakeEnrollmentRepo) Activate(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, amount float64, at time.Time) (int64, error) {
	e, ok := f.enrollments[enrollmentID]
	if !ok || e.Status == types.EnrollmentActive {
		return 0, nil
	}
	e.Status = types.EnrollmentActive
	e.Amount = amount
	e.ActivatedAt = &at
	return 1, nil
}

func (f *fakeEnrollmentRepo) CancelIfPending(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (int64, error) {
	e, _ := f.GetByUserAndCourse(ctx, tx, userID, courseID)
	if e == nil || e.Status != types.EnrollmentPending {
		return 0, nil
	}
	e.Status = types.EnrollmentCancelled
	return 1, nil
}

type fakeVideoProgressRepo struct {
	rows map[uuid.UUID]*types.VideoProgress
}

func newFakeVideoProgressRepo() *fakeVideoProgressRepo {
	return &fakeVideoProgressRepo{rows: map[uuid.UUID]*types.VideoProgress{}}
}

func (f *fakeVideoProgressRepo) GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.VideoProgress, error) {
	for _, r := range f.rows {
		if r.UserID == userID && r.LessonID == lessonID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeVideoProgressRepo) GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.VideoProgress, error) {
	var out []*types.VideoProgress
	for _, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		for _, id := range lessonIDs {
			if r.LessonID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeVideoProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.VideoProgress) error {
	existing, _ := f.GetByUserAndLesson(ctx, tx, row.UserID, row.LessonID)
	if existing != nil {
		existing.WatchedSeconds = row.WatchedSeconds
		existing.Percent = row.Percent
		existing.IsCompleted = row.IsCompleted
		*row = *existing
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.rows[row.ID] = row
	return nil
}

type fakeLessonProgressRepo struct {
	rows map[uuid.UUID]*types.LessonProgress
}

func newFakeLessonProgressRepo() *fakeLessonProgressRepo {
	return &fakeLessonProgressRepo{rows: map[uuid.UUID]*types.LessonProgress{}}
}

func (f *fakeLessonProgressRepo) GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	for _, r := range f.rows {
		if r.UserID == userID && r.LessonID == lessonID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeLessonProgressRepo) GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	var out []*types.LessonProgress
	for _, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		for _, id := range lessonIDs {
			if r.LessonID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeLessonProgressRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.LessonProgress, error) {
	var out []*types.LessonProgress
	for _, r := range f.rows {
		if r.UserID == userID && r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLessonProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.LessonProgress) error {
	existing, _ := f.GetByUserAndLesson(ctx, tx, row.UserID, row.LessonID)
	if existing != nil {
		existing.Completed = row.Completed
		existing.CompletedAt = row.CompletedAt
		existing.CourseID = row.CourseID
		*row = *existing
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.rows[row.ID] = row
	return nil
}

type fakeConversationRepo struct {
	rows map[uuid.UUID]*types.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{rows: map[uuid.UUID]*types.Conversation{}}
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error) {
	return f.rows[conversationID], nil
}

func (f *fakeConversationRepo) GetByParticipants(ctx context.Context, tx *gorm.DB, instructorID, studentID uuid.UUID, courseKey string) (*types.Conversation, error) {
	for _, r := range f.rows {
		if r.InstructorID == instructorID && r.StudentID == studentID && r.CourseKey == courseKey {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeConversationRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Conversation) (repos.CreateOutcome, error) {
	existing, _ := f.GetByParticipants(ctx, tx, row.InstructorID, row.StudentID, row.CourseKey)
	if existing != nil {
		return repos.OutcomeAlreadyExists, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.rows[row.ID] = row
	return repos.OutcomeCreated, nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Conversation, error) {
	var out []*types.Conversation
	for _, r := range f.rows {
		if r.InstructorID == userID || r.StudentID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (f *fakeConversationRepo) TouchLastMessageAt(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, at time.Time) error {
	if r, ok := f.rows[conversationID]; ok {
		r.LastMessageAt = at
	}
	return nil
}

type fakeMessageRepo struct {
	rows []*types.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error) {
	for _, m := range messages {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		f.rows = append(f.rows, m)
	}
	return messages, nil
}

func (f *fakeMessageRepo) CountByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range f.rows {
		if m.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) ListByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	var out []*types.Message
	for _, m := range f.rows {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakePaymentClient scripts provider responses for checkout tests.
type fakePaymentClient struct {
	existingCustomers map[string]bool
	mintedCustomers   int
	checkoutURL       string
	lastParams        CheckoutParams
}

func newFakePaymentClient() *fakePaymentClient {
	return &fakePaymentClient{
		existingCustomers: map[string]bool{},
		checkoutURL:       "https://checkout.example.com/session",
	}
}

func (f *fakePaymentClient) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	return f.existingCustomers[customerID], nil
}

func (f *fakePaymentClient) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	f.mintedCustomers++
	id := fmt.Sprintf("cus_%d", f.mintedCustomers)
	f.existingCustomers[id] = true
	return id, nil
}

func (f *fakePaymentClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	f.lastParams = params
	return f.checkoutURL, nil
}

func (f *fakePaymentClient) VerifyWebhook(payload []byte, sigHeader string) (CheckoutEvent, error) {
	return CheckoutEvent{}, fmt.Errorf("not implemented in fake")
}

func authedCtx(userID uuid.UUID, role types.UserRole) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID: userID,
		Role:   role,
	})
}
