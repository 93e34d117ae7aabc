package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newEvaluationFixture(repo *fakeRepository) (EvaluationService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher()
	v := validator.New()
	identity := NewIdentityService(repo, nil, testLogger(), v, publisher, FallbackRoster{})
	return NewEvaluationService(repo, nil, testLogger(), v, identity, publisher), publisher
}

func TestSubmitEvaluation_UpdatesRating(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	repo.addUser("u2", "u2@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, publisher := newEvaluationFixture(repo)

	ctx := context.Background()

	resp, err := service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: professor.ID,
		Domain:      4,
		Methodology: 4,
		Punctuality: 4,
	}, "u1")
	if err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	if resp.Evaluation.Average != 4.0 {
		t.Errorf("Expected average 4.0, got %v", resp.Evaluation.Average)
	}
	if resp.NewRating != 4.0 {
		t.Errorf("Expected rating 4.0, got %v", resp.NewRating)
	}

	// A second evaluation shifts the stored rating to the new mean.
	resp, err = service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: professor.ID,
		Domain:      3,
		Methodology: 3,
		Punctuality: 3,
	}, "u2")
	if err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	if resp.NewRating != 3.5 {
		t.Errorf("Expected rating 3.5, got %v", resp.NewRating)
	}
	if repo.professors[professor.ID].Rating != 3.5 {
		t.Errorf("Stored rating should be 3.5, got %v", repo.professors[professor.ID].Rating)
	}

	if got := len(publisher.EventsOfType(events.EvaluationSubmitted)); got != 2 {
		t.Errorf("Expected 2 submitted events, got %d", got)
	}
}

func TestSubmitEvaluation_Duplicate(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, _ := newEvaluationFixture(repo)

	ctx := context.Background()
	req := &SubmitEvaluationRequest{ProfessorID: professor.ID, Domain: 5, Methodology: 5, Punctuality: 5}

	if _, err := service.SubmitEvaluation(ctx, req, "u1"); err != nil {
		t.Fatalf("First submission failed: %v", err)
	}

	_, err := service.SubmitEvaluation(ctx, req, "u1")
	if !errors.Is(err, ErrAlreadyEvaluated) {
		t.Fatalf("Expected ErrAlreadyEvaluated, got %v", err)
	}

	if len(repo.evaluations) != 1 {
		t.Errorf("Expected 1 stored evaluation, got %d", len(repo.evaluations))
	}
	if repo.professors[professor.ID].Rating != 5.0 {
		t.Errorf("Rating should stay 5.0, got %v", repo.professors[professor.ID].Rating)
	}
}

func TestSubmitEvaluation_WithComment(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, _ := newEvaluationFixture(repo)

	resp, err := service.SubmitEvaluation(context.Background(), &SubmitEvaluationRequest{
		ProfessorID: professor.ID,
		Domain:      4,
		Methodology: 5,
		Punctuality: 3,
		CommentText: "Great lectures, tough exams.",
	}, "u1")
	if err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	if resp.Comment == nil {
		t.Fatal("Expected a stored comment")
	}
	if resp.Comment.Date == "" {
		t.Error("Comment date should default to today")
	}
	// (4+5+3)/3 = 4.0
	if resp.Evaluation.Average != 4.0 {
		t.Errorf("Expected average 4.0, got %v", resp.Evaluation.Average)
	}
}

func TestSubmitEvaluation_WhitespaceCommentSkipped(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, _ := newEvaluationFixture(repo)

	resp, err := service.SubmitEvaluation(context.Background(), &SubmitEvaluationRequest{
		ProfessorID: professor.ID,
		Domain:      5,
		Methodology: 4,
		Punctuality: 3,
		CommentText: "   ",
	}, "u1")
	if err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	if resp.Comment != nil {
		t.Errorf("Whitespace-only comment should not be stored, got %+v", resp.Comment)
	}
	if len(repo.comments) != 0 {
		t.Errorf("Expected no comment rows, got %d", len(repo.comments))
	}
	if len(repo.evaluations) != 1 {
		t.Errorf("Evaluation should still commit, got %d rows", len(repo.evaluations))
	}
}

func TestSubmitEvaluation_UnknownProfessor(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	service, _ := newEvaluationFixture(repo)

	_, err := service.SubmitEvaluation(context.Background(), &SubmitEvaluationRequest{
		ProfessorID: 999,
		Domain:      4,
		Methodology: 4,
		Punctuality: 4,
	}, "u1")
	if !errors.Is(err, ErrProfessorNotFound) {
		t.Fatalf("Expected ErrProfessorNotFound, got %v", err)
	}
}

func TestRecomputeRating_NoEvaluations(t *testing.T) {
	repo := newFakeRepository()
	professor := repo.addProfessor("Ada Lovelace")
	professor.Rating = 4.2
	service, _ := newEvaluationFixture(repo)

	rating, err := service.RecomputeRating(context.Background(), professor.ID)
	if err != nil {
		t.Fatalf("RecomputeRating failed: %v", err)
	}
	if rating != 0 {
		t.Errorf("Expected rating 0 with no evaluations, got %v", rating)
	}
	if repo.professors[professor.ID].Rating != 0 {
		t.Errorf("Stored rating should be reset to 0, got %v", repo.professors[professor.ID].Rating)
	}
}

func TestRecomputeRating_Idempotent(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, _ := newEvaluationFixture(repo)
	ctx := context.Background()

	if _, err := service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: professor.ID, Domain: 4, Methodology: 3, Punctuality: 5,
	}, "u1"); err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}

	first, err := service.RecomputeRating(ctx, professor.ID)
	if err != nil {
		t.Fatalf("RecomputeRating failed: %v", err)
	}
	second, err := service.RecomputeRating(ctx, professor.ID)
	if err != nil {
		t.Fatalf("RecomputeRating failed: %v", err)
	}
	if first != second {
		t.Errorf("Recompute should be idempotent: %v vs %v", first, second)
	}
}

func TestResyncAllRatings(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	p1 := repo.addProfessor("Ada Lovelace")
	p2 := repo.addProfessor("Alan Turing")
	p2.Rating = 2.5 // stale, no evaluations back it
	service, publisher := newEvaluationFixture(repo)
	ctx := context.Background()

	if _, err := service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: p1.ID, Domain: 5, Methodology: 5, Punctuality: 5,
	}, "u1"); err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	publisher.ClearEvents()

	report, err := service.ResyncAllRatings(ctx)
	if err != nil {
		t.Fatalf("ResyncAllRatings failed: %v", err)
	}
	if report.Professors != 2 || report.Updated != 2 || report.Failed != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if repo.professors[p2.ID].Rating != 0 {
		t.Errorf("Stale rating should be reset, got %v", repo.professors[p2.ID].Rating)
	}
	if got := len(publisher.EventsOfType(events.ProfessorRatingRecomputed)); got != 1 {
		t.Errorf("Expected 1 resync event, got %d", got)
	}
}

func TestPickUnevaluated(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	p1 := repo.addProfessor("Ada Lovelace")
	p2 := repo.addProfessor("Alan Turing")
	service, _ := newEvaluationFixture(repo)
	ctx := context.Background()

	if _, err := service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: p1.ID, Domain: 4, Methodology: 4, Punctuality: 4,
	}, "u1"); err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}

	resp, err := service.PickUnevaluated(ctx, "u1")
	if err != nil {
		t.Fatalf("PickUnevaluated failed: %v", err)
	}
	if !resp.CanEvaluate || resp.Professor == nil || resp.Professor.ID != p2.ID {
		t.Errorf("Expected professor %d, got %+v", p2.ID, resp)
	}

	// Anonymous callers get a random professor but cannot submit.
	anon, err := service.PickUnevaluated(ctx, "")
	if err != nil {
		t.Fatalf("PickUnevaluated anonymous failed: %v", err)
	}
	if anon.Professor == nil || anon.CanEvaluate {
		t.Errorf("Anonymous pick should return a professor without the flag, got %+v", anon)
	}

	if _, err := service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: p2.ID, Domain: 4, Methodology: 4, Punctuality: 4,
	}, "u1"); err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}

	// Exhaustion still yields a random professor, flagged not evaluable.
	exhausted, err := service.PickUnevaluated(ctx, "u1")
	if err != nil {
		t.Fatalf("PickUnevaluated after exhaustion failed: %v", err)
	}
	if exhausted.Professor == nil || exhausted.CanEvaluate || exhausted.Message == "" {
		t.Errorf("Expected random professor with message, got %+v", exhausted)
	}
}

func TestListTopRated(t *testing.T) {
	repo := newFakeRepository()
	p1 := repo.addProfessor("Ada Lovelace")
	p1.Rating = 4.5
	p2 := repo.addProfessor("Alan Turing")
	p2.Rating = 3.8
	repo.addProfessor("Unrated") // rating 0, excluded
	service, _ := newEvaluationFixture(repo)

	top, err := service.ListTopRated(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListTopRated failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 rated professors, got %d", len(top))
	}
	if top[0].ID != p1.ID || top[1].ID != p2.ID {
		t.Errorf("Wrong order: %d, %d", top[0].ID, top[1].ID)
	}
}

func TestCreateProfessor_RequiresAdmin(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	service, _ := newEvaluationFixture(repo)
	ctx := context.Background()

	req := &CreateProfessorRequest{Name: "Grace Hopper", Courses: []string{"Compilers"}}

	if _, err := service.CreateProfessor(ctx, req, "u1"); !IsPermissionError(err) {
		t.Fatalf("Expected permission error for non-admin, got %v", err)
	}

	professor, err := service.CreateProfessor(ctx, req, "a1")
	if err != nil {
		t.Fatalf("CreateProfessor failed for admin: %v", err)
	}
	if professor.Rating != 0 {
		t.Errorf("New professor should start unrated, got %v", professor.Rating)
	}
}

func TestGetProfessor_HasEvaluatedFlag(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, _ := newEvaluationFixture(repo)
	ctx := context.Background()

	resp, err := service.GetProfessor(ctx, professor.ID, "u1")
	if err != nil {
		t.Fatalf("GetProfessor failed: %v", err)
	}
	if resp.HasEvaluated {
		t.Error("HasEvaluated should be false before submitting")
	}

	if _, err := service.SubmitEvaluation(ctx, &SubmitEvaluationRequest{
		ProfessorID: professor.ID, Domain: 4, Methodology: 4, Punctuality: 4,
	}, "u1"); err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}

	resp, err = service.GetProfessor(ctx, professor.ID, "u1")
	if err != nil {
		t.Fatalf("GetProfessor failed: %v", err)
	}
	if !resp.HasEvaluated {
		t.Error("HasEvaluated should be true after submitting")
	}
}
