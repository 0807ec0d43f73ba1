package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/types"
)

const analyticsCacheTTL = 5 * time.Minute

// InstructorOverview rolls up an instructor's catalog over a trailing window.
// Deltas compare the current window against the one immediately before it.
type InstructorOverview struct {
	PeriodDays           int     `json:"period_days"`
	TotalRevenue         float64 `json:"total_revenue"`
	RevenueDelta         float64 `json:"revenue_delta"`
	TotalEnrollments     int     `json:"total_enrollments"`
	EnrollmentsDelta     int     `json:"enrollments_delta"`
	ActiveStudents       int     `json:"active_students"`
	CompletionRate       float64 `json:"completion_rate"`
	PublishedCourseCount int     `json:"published_course_count"`
}

type AnalyticsService interface {
	GetInstructorOverview(ctx context.Context, instructorID uuid.UUID, periodDays int) (*InstructorOverview, error)
}

type analyticsService struct {
	db                 *gorm.DB
	log                *logger.Logger
	courseRepo         repos.CourseRepo
	enrollmentRepo     repos.EnrollmentRepo
	chapterRepo        repos.ChapterRepo
	lessonRepo         repos.LessonRepo
	lessonProgressRepo repos.LessonProgressRepo
	cache              *redis.Client
}

func NewAnalyticsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	chapterRepo repos.ChapterRepo,
	lessonRepo repos.LessonRepo,
	lessonProgressRepo repos.LessonProgressRepo,
	cache *redis.Client,
) AnalyticsService {
	serviceLog := baseLog.With("service", "AnalyticsService")
	return &analyticsService{
		db:                 db,
		log:                serviceLog,
		courseRepo:         courseRepo,
		enrollmentRepo:     enrollmentRepo,
		chapterRepo:        chapterRepo,
		lessonRepo:         lessonRepo,
		lessonProgressRepo: lessonProgressRepo,
		cache:              cache,
	}
}

// dayStart truncates t to UTC midnight. Every window in this service is
// half-open: [start, end).
func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *analyticsService) GetInstructorOverview(ctx context.Context, instructorID uuid.UUID, periodDays int) (*InstructorOverview, error) {
	if periodDays < 1 {
		periodDays = 30
	}

	cacheKey := fmt.Sprintf("analytics:overview:%s:%d", instructorID, periodDays)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached InstructorOverview
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn("Analytics cache read failed", "error", err)
		}
	}

	overview, err := s.computeOverview(ctx, instructorID, periodDays)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(overview); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, analyticsCacheTTL).Err(); err != nil {
				s.log.Warn("Analytics cache write failed", "error", err)
			}
		}
	}
	return overview, nil
}

func (s *analyticsService) computeOverview(ctx context.Context, instructorID uuid.UUID, periodDays int) (*InstructorOverview, error) {
	courses, err := s.courseRepo.GetByUserIDs(ctx, nil, []uuid.UUID{instructorID})
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	overview := &InstructorOverview{PeriodDays: periodDays}
	if len(courses) == 0 {
		return overview, nil
	}

	courseIDs := make([]uuid.UUID, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
		if c.Status == types.CoursePublished {
			overview.PublishedCourseCount++
		}
	}

	enrollments, err := s.enrollmentRepo.GetByCourseIDs(ctx, nil, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}

	// Three boundaries carve out the current and previous windows.
	windowEnd := dayStart(time.Now()).AddDate(0, 0, 1)
	windowStart := windowEnd.AddDate(0, 0, -periodDays)
	previousStart := windowStart.AddDate(0, 0, -periodDays)

	var currentRevenue, previousRevenue float64
	var currentEnrollments, previousEnrollments int
	activeStudents := map[uuid.UUID]bool{}

	for _, e := range enrollments {
		if e.Status != types.EnrollmentActive || e.ActivatedAt == nil {
			continue
		}
		activeStudents[e.UserID] = true
		at := e.ActivatedAt.UTC()
		switch {
		case !at.Before(windowStart) && at.Before(windowEnd):
			currentRevenue += e.Amount
			currentEnrollments++
		case !at.Before(previousStart) && at.Before(windowStart):
			previousRevenue += e.Amount
			previousEnrollments++
		}
	}

	overview.TotalRevenue = currentRevenue
	overview.RevenueDelta = currentRevenue - previousRevenue
	overview.TotalEnrollments = currentEnrollments
	overview.EnrollmentsDelta = currentEnrollments - previousEnrollments
	overview.ActiveStudents = len(activeStudents)

	rate, err := s.completionRate(ctx, courseIDs, enrollments)
	if err != nil {
		return nil, err
	}
	overview.CompletionRate = rate
	return overview, nil
}

// completionRate is completed (student, lesson) pairs over possible pairs:
// active enrollments per course times the course's lesson count.
func (s *analyticsService) completionRate(ctx context.Context, courseIDs []uuid.UUID, enrollments []*types.Enrollment) (float64, error) {
	activeByCourse := map[uuid.UUID][]uuid.UUID{}
	for _, e := range enrollments {
		if e.Status == types.EnrollmentActive {
			activeByCourse[e.CourseID] = append(activeByCourse[e.CourseID], e.UserID)
		}
	}
	if len(activeByCourse) == 0 {
		return 0, nil
	}

	var possible, completed int
	for _, courseID := range courseIDs {
		students := activeByCourse[courseID]
		if len(students) == 0 {
			continue
		}

		chapters, err := s.chapterRepo.GetByCourseID(ctx, nil, courseID)
		if err != nil {
			return 0, fmt.Errorf("load chapters: %w", err)
		}
		chapterIDs := make([]uuid.UUID, 0, len(chapters))
		for _, ch := range chapters {
			chapterIDs = append(chapterIDs, ch.ID)
		}
		lessons, err := s.lessonRepo.GetByChapterIDs(ctx, nil, chapterIDs)
		if err != nil {
			return 0, fmt.Errorf("load lessons: %w", err)
		}
		if len(lessons) == 0 {
			continue
		}

		possible += len(students) * len(lessons)
		for _, studentID := range students {
			progress, err := s.lessonProgressRepo.GetByUserAndCourse(ctx, nil, studentID, courseID)
			if err != nil {
				return 0, fmt.Errorf("load lesson progress: %w", err)
			}
			for _, p := range progress {
				if p.Completed {
					completed++
				}
			}
		}
	}
	if possible == 0 {
		return 0, nil
	}
	return float64(completed) / float64(possible) * 100, nil
}
