package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

// fakeBlobStore records calls for assertions.
type fakeBlobStore struct {
	removed   []string
	removeErr error
}

func (b *fakeBlobStore) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	return key, nil
}

func (b *fakeBlobStore) Remove(ctx context.Context, key string) error {
	if b.removeErr != nil {
		return b.removeErr
	}
	b.removed = append(b.removed, key)
	return nil
}

func (b *fakeBlobStore) PresignedURL(key string, expiry time.Duration) (string, error) {
	return "https://blobs.example.com/" + key + "?signed=1", nil
}

func (b *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func newResourceFixture(repo *fakeRepository, blobs *fakeBlobStore) (ResourceService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher()
	v := validator.New()
	identity := NewIdentityService(repo, nil, testLogger(), v, publisher, FallbackRoster{})
	return NewResourceService(repo, nil, testLogger(), v, identity, publisher, blobs), publisher
}

func proUser(repo *fakeRepository, id, email string) {
	repo.addUser(id, email)
	repo.profiles[id] = &models.Profile{UserID: id, IsPro: true}
}

func TestSubmitResource_StartsPending(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	service, publisher := newResourceFixture(repo, &fakeBlobStore{})

	resource, err := service.Submit(context.Background(), &SubmitResourceRequest{
		ProfessorID: professor.ID,
		FileName:    "algorithms-notes.pdf",
		StoragePath: "resources/1/algorithms-notes.pdf",
		Type:        models.ResourceNotes,
	}, "u1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if resource.Status != models.ResourcePending {
		t.Errorf("Expected pending status, got %s", resource.Status)
	}
	if resource.VotesPositive != 0 || resource.VotesNegative != 0 {
		t.Error("New resource should have zero votes")
	}
	if got := len(publisher.EventsOfType(events.ResourceSubmitted)); got != 1 {
		t.Errorf("Expected 1 submitted event, got %d", got)
	}
}

func TestCastVote_RequiresEntitlement(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("free", "free@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	resource := repo.addResource(professor.ID, "uploader", models.ResourceApproved)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	_, err := service.CastVote(context.Background(), resource.ID, &VoteRequest{Vote: "up"}, "free")
	if !errors.Is(err, ErrNotEntitled) {
		t.Fatalf("Expected ErrNotEntitled, got %v", err)
	}

	// The denial happens before any counter moves.
	if repo.resources[resource.ID].VotesPositive != 0 {
		t.Error("Vote counter must not move for a denied vote")
	}
}

func TestCastVote_OnlyApproved(t *testing.T) {
	repo := newFakeRepository()
	proUser(repo, "pro", "pro@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	pending := repo.addResource(professor.ID, "uploader", models.ResourcePending)
	rejected := repo.addResource(professor.ID, "uploader", models.ResourceRejected)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})
	ctx := context.Background()

	for _, id := range []uint{pending.ID, rejected.ID} {
		if _, err := service.CastVote(ctx, id, &VoteRequest{Vote: "up"}, "pro"); !errors.Is(err, ErrResourceNotVotable) {
			t.Errorf("Resource %d: expected ErrResourceNotVotable, got %v", id, err)
		}
	}
}

func TestCastVote_DisplayRating(t *testing.T) {
	repo := newFakeRepository()
	proUser(repo, "pro", "pro@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	resource := repo.addResource(professor.ID, "uploader", models.ResourceApproved)
	resource.VotesPositive = 2
	resource.VotesNegative = 1
	service, publisher := newResourceFixture(repo, &fakeBlobStore{})

	resp, err := service.CastVote(context.Background(), resource.ID, &VoteRequest{Vote: "up"}, "pro")
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	// 3 positive of 4 total: 3/4*5 = 3.75, rounds to 3.8
	if resp.RatingCount != 4 {
		t.Errorf("Expected rating count 4, got %d", resp.RatingCount)
	}
	if resp.DisplayRating != 3.8 {
		t.Errorf("Expected display rating 3.8, got %v", resp.DisplayRating)
	}
	if got := len(publisher.EventsOfType(events.ResourceVoteCast)); got != 1 {
		t.Errorf("Expected 1 vote event, got %d", got)
	}
}

func TestCastVote_ZeroVotesDistinguishable(t *testing.T) {
	repo := newFakeRepository()
	professor := repo.addProfessor("Ada Lovelace")
	repo.addResource(professor.ID, "uploader", models.ResourceApproved)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	resources, err := service.ListApprovedByProfessor(context.Background(), professor.ID)
	if err != nil {
		t.Fatalf("ListApprovedByProfessor failed: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("Expected 1 resource, got %d", len(resources))
	}
	if resources[0].DisplayRating != 0 || resources[0].RatingCount != 0 {
		t.Errorf("Unvoted resource should show rating 0 with count 0, got %v/%d",
			resources[0].DisplayRating, resources[0].RatingCount)
	}
}

func TestDownloadURL_Visibility(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("uploader", "uploader@example.com")
	repo.addUser("stranger", "stranger@example.com")
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	pending := repo.addResource(professor.ID, "uploader", models.ResourcePending)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})
	ctx := context.Background()

	if _, err := service.DownloadURL(ctx, pending.ID, "uploader"); err != nil {
		t.Errorf("Uploader should reach own pending resource: %v", err)
	}
	if _, err := service.DownloadURL(ctx, pending.ID, "a1"); err != nil {
		t.Errorf("Admin should reach pending resource: %v", err)
	}
	if _, err := service.DownloadURL(ctx, pending.ID, "stranger"); !IsPermissionError(err) {
		t.Errorf("Stranger should be denied, got %v", err)
	}
}

func TestReview_Resettable(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	resource := repo.addResource(professor.ID, "uploader", models.ResourcePending)
	service, publisher := newResourceFixture(repo, &fakeBlobStore{})
	ctx := context.Background()

	reviewed, err := service.Review(ctx, resource.ID, &ReviewResourceRequest{Status: models.ResourceApproved}, "a1")
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if reviewed.Status != models.ResourceApproved || reviewed.ReviewedAt == nil {
		t.Errorf("Expected approved with review timestamp, got %s", reviewed.Status)
	}

	// The newest decision wins.
	reviewed, err = service.Review(ctx, resource.ID, &ReviewResourceRequest{Status: models.ResourceRejected}, "a1")
	if err != nil {
		t.Fatalf("Re-review failed: %v", err)
	}
	if reviewed.Status != models.ResourceRejected {
		t.Errorf("Expected rejected after re-review, got %s", reviewed.Status)
	}

	if got := len(publisher.EventsOfType(events.ResourceReviewed)); got != 2 {
		t.Errorf("Expected 2 reviewed events, got %d", got)
	}
}

func TestReview_RequiresAdmin(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	resource := repo.addResource(professor.ID, "uploader", models.ResourcePending)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	_, err := service.Review(context.Background(), resource.ID, &ReviewResourceRequest{Status: models.ResourceApproved}, "u1")
	if !IsPermissionError(err) {
		t.Fatalf("Expected permission error, got %v", err)
	}
	if repo.resources[resource.ID].Status != models.ResourcePending {
		t.Error("Denied review must not change status")
	}
}

func TestBatchReview(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	r1 := repo.addResource(professor.ID, "uploader", models.ResourcePending)
	r2 := repo.addResource(professor.ID, "uploader", models.ResourcePending)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	affected, err := service.BatchReview(context.Background(), &BatchReviewRequest{
		IDs:    []uint{r1.ID, r2.ID, 9999},
		Status: models.ResourceApproved,
	}, "a1")
	if err != nil {
		t.Fatalf("BatchReview failed: %v", err)
	}
	if affected != 2 {
		t.Errorf("Expected 2 affected rows, got %d", affected)
	}
	if repo.resources[r1.ID].Status != models.ResourceApproved {
		t.Error("r1 should be approved")
	}
}

func TestPurge_RowAuthoritative(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	resource := repo.addResource(professor.ID, "uploader", models.ResourceApproved)
	blobs := &fakeBlobStore{}
	service, _ := newResourceFixture(repo, blobs)
	ctx := context.Background()

	if err := service.Purge(ctx, resource.ID, "a1"); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, exists := repo.resources[resource.ID]; exists {
		t.Error("Row should be deleted")
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != resource.StoragePath {
		t.Errorf("Expected blob removal for %s, got %v", resource.StoragePath, blobs.removed)
	}

	// A failing blob delete never fails the purge.
	second := repo.addResource(professor.ID, "uploader", models.ResourceApproved)
	blobs.removeErr = fmt.Errorf("storage unavailable")
	if err := service.Purge(ctx, second.ID, "a1"); err != nil {
		t.Fatalf("Purge should succeed despite blob failure: %v", err)
	}
	if _, exists := repo.resources[second.ID]; exists {
		t.Error("Row should be deleted even when blob removal fails")
	}
}

func TestAdminStats(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	repo.addResource(professor.ID, "u1", models.ResourcePending)
	repo.addResource(professor.ID, "u1", models.ResourceApproved)
	repo.addResource(professor.ID, "u2", models.ResourceRejected)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	stats, err := service.AdminStats(context.Background(), "a1")
	if err != nil {
		t.Fatalf("AdminStats failed: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Approved != 1 || stats.Rejected != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.ActiveUploaders != 2 {
		t.Errorf("Expected 2 uploaders, got %d", stats.ActiveUploaders)
	}
}

func TestTopContributors(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	repo.addResource(professor.ID, "u1", models.ResourceApproved)
	repo.addResource(professor.ID, "u1", models.ResourceApproved)
	repo.addResource(professor.ID, "u2", models.ResourceApproved)
	repo.addResource(professor.ID, "u3", models.ResourcePending) // not counted
	service, _ := newResourceFixture(repo, &fakeBlobStore{})
	ctx := context.Background()

	ranked, err := service.TopContributors(ctx, 10, "a1")
	if err != nil {
		t.Fatalf("TopContributors failed: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("Expected 2 contributors, got %d", len(ranked))
	}
	if ranked[0].UploaderID != "u1" || ranked[0].ApprovedResources != 2 || ranked[0].Points != 200 {
		t.Errorf("Unexpected leader: %+v", ranked[0])
	}
	if ranked[1].UploaderID != "u2" || ranked[1].Points != 100 {
		t.Errorf("Unexpected runner-up: %+v", ranked[1])
	}

	if _, err := service.TopContributors(ctx, 10, "u1"); !IsPermissionError(err) {
		t.Fatalf("Expected permission error for non-admin, got %v", err)
	}
}

func TestMyContribution(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("u1", "u1@example.com")
	professor := repo.addProfessor("Ada Lovelace")
	repo.addResource(professor.ID, "u1", models.ResourceApproved)
	repo.addResource(professor.ID, "u1", models.ResourcePending)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	stats, err := service.MyContribution(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MyContribution failed: %v", err)
	}
	if stats.UploadedResources != 2 || stats.ApprovedResources != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Points != 100 {
		t.Errorf("Expected 100 points, got %d", stats.Points)
	}
}

func TestExportAdminReport(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser("a1", "admin@example.com")
	repo.addAdmin("admin@example.com", models.RoleAdmin, true)
	professor := repo.addProfessor("Ada Lovelace")
	repo.addResource(professor.ID, "u1", models.ResourceApproved)
	service, _ := newResourceFixture(repo, &fakeBlobStore{})

	data, err := service.ExportAdminReport(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ExportAdminReport failed: %v", err)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("Export should produce a valid workbook")
	}
}
