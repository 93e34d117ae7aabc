package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// fakeRepository is an in-memory Repository used by the service tests. It
// honors the same error contracts as the real repositories (ErrNotFound,
// ErrDuplicateKey) and supports forced failures so degraded paths can be
// exercised.
type fakeRepository struct {
	professors map[uint]*models.Professor
	evaluations []*models.Evaluation
	comments   map[uint]*models.Comment
	likes      map[string]*models.CommentLike
	resources  map[uint]*models.Resource
	profiles   map[string]*models.Profile
	admins     map[uint]*models.AdminUser
	users      map[string]*models.User

	nextID uint

	// Forced failures
	adminReadErr  error
	userLookupErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		professors: map[uint]*models.Professor{},
		comments:   map[uint]*models.Comment{},
		likes:      map[string]*models.CommentLike{},
		resources:  map[uint]*models.Resource{},
		profiles:   map[string]*models.Profile{},
		admins:     map[uint]*models.AdminUser{},
		users:      map[string]*models.User{},
	}
}

func (f *fakeRepository) nextSequence() uint {
	f.nextID++
	return f.nextID
}

func likeKey(commentID uint, userID string) string {
	return fmt.Sprintf("%d:%s", commentID, userID)
}

func (f *fakeRepository) Professor() repositories.ProfessorRepository     { return &fakeProfessorRepo{f} }
func (f *fakeRepository) Evaluation() repositories.EvaluationRepository   { return &fakeEvaluationRepo{f} }
func (f *fakeRepository) Comment() repositories.CommentRepository         { return &fakeCommentRepo{f} }
func (f *fakeRepository) CommentLike() repositories.CommentLikeRepository { return &fakeCommentLikeRepo{f} }
func (f *fakeRepository) Resource() repositories.ResourceRepository       { return &fakeResourceRepo{f} }
func (f *fakeRepository) Profile() repositories.ProfileRepository         { return &fakeProfileRepo{f} }
func (f *fakeRepository) Admin() repositories.AdminRepository             { return &fakeAdminRepo{f} }
func (f *fakeRepository) User() repositories.UserRepository               { return &fakeUserRepo{f} }

// WithTransaction snapshots the mutable state and restores it when fn fails,
// mirroring a rollback.
func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	professors := make(map[uint]*models.Professor, len(f.professors))
	for k, v := range f.professors {
		copied := *v
		professors[k] = &copied
	}
	evaluations := make([]*models.Evaluation, len(f.evaluations))
	copy(evaluations, f.evaluations)
	comments := make(map[uint]*models.Comment, len(f.comments))
	for k, v := range f.comments {
		comments[k] = v
	}
	likes := make(map[string]*models.CommentLike, len(f.likes))
	for k, v := range f.likes {
		likes[k] = v
	}
	nextID := f.nextID

	if err := fn(f); err != nil {
		f.professors = professors
		f.evaluations = evaluations
		f.comments = comments
		f.likes = likes
		f.nextID = nextID
		return err
	}
	return nil
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== PROFESSOR =====

type fakeProfessorRepo struct{ f *fakeRepository }

func (r *fakeProfessorRepo) Create(ctx context.Context, professor *models.Professor) error {
	professor.ID = r.f.nextSequence()
	professor.CreatedAt = time.Now()
	r.f.professors[professor.ID] = professor
	return nil
}

func (r *fakeProfessorRepo) GetByID(ctx context.Context, id uint) (*models.Professor, error) {
	p, ok := r.f.professors[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (r *fakeProfessorRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.Professor, error) {
	p, ok := r.f.professors[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	detailed := *p
	detailed.Evaluations = nil
	detailed.Comments = nil
	for _, e := range r.f.evaluations {
		if e.ProfessorID == id {
			detailed.Evaluations = append(detailed.Evaluations, *e)
		}
	}
	for _, c := range r.f.comments {
		if c.ProfessorID == id {
			detailed.Comments = append(detailed.Comments, *c)
		}
	}
	detailed.EvaluationCount = len(detailed.Evaluations)
	return &detailed, nil
}

func (r *fakeProfessorRepo) List(ctx context.Context) ([]*models.Professor, error) {
	out := make([]*models.Professor, 0, len(r.f.professors))
	for _, p := range r.f.professors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProfessorRepo) ListIDs(ctx context.Context) ([]uint, error) {
	ids := make([]uint, 0, len(r.f.professors))
	for id := range r.f.professors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeProfessorRepo) Search(ctx context.Context, query string) ([]*models.Professor, error) {
	lowered := strings.ToLower(query)
	var out []*models.Professor
	for _, p := range r.f.professors {
		if strings.Contains(strings.ToLower(p.Name), lowered) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfessorRepo) UpdateRating(ctx context.Context, id uint, rating float64) error {
	p, ok := r.f.professors[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Rating = rating
	return nil
}

// ===== EVALUATION =====

type fakeEvaluationRepo struct{ f *fakeRepository }

func (r *fakeEvaluationRepo) Create(ctx context.Context, evaluation *models.Evaluation) error {
	for _, e := range r.f.evaluations {
		if e.ProfessorID == evaluation.ProfessorID && e.UserID == evaluation.UserID {
			return repositories.ErrDuplicateKey
		}
	}
	evaluation.ID = r.f.nextSequence()
	evaluation.CreatedAt = time.Now()
	r.f.evaluations = append(r.f.evaluations, evaluation)
	return nil
}

func (r *fakeEvaluationRepo) AveragesByProfessor(ctx context.Context, professorID uint) ([]float64, error) {
	var out []float64
	for _, e := range r.f.evaluations {
		if e.ProfessorID == professorID {
			out = append(out, e.Average)
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) ListByProfessor(ctx context.Context, professorID uint) ([]*models.Evaluation, error) {
	var out []*models.Evaluation
	for _, e := range r.f.evaluations {
		if e.ProfessorID == professorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error) {
	var out []*models.Evaluation
	for _, e := range r.f.evaluations {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) Exists(ctx context.Context, professorID uint, userID string) (bool, error) {
	for _, e := range r.f.evaluations {
		if e.ProfessorID == professorID && e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEvaluationRepo) EvaluatedProfessorIDs(ctx context.Context, userID string) ([]uint, error) {
	var out []uint
	for _, e := range r.f.evaluations {
		if e.UserID == userID {
			out = append(out, e.ProfessorID)
		}
	}
	return out, nil
}

// ===== COMMENT =====

type fakeCommentRepo struct{ f *fakeRepository }

func (r *fakeCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	comment.ID = r.f.nextSequence()
	comment.CreatedAt = time.Now()
	r.f.comments[comment.ID] = comment
	return nil
}

func (r *fakeCommentRepo) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	c, ok := r.f.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (r *fakeCommentRepo) ListByUser(ctx context.Context, userID string) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range r.f.comments {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCommentRepo) ListWithProfessors(ctx context.Context) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range r.f.comments {
		out = append(out, c)
	}
	return out, nil
}

// ===== COMMENT LIKE =====

type fakeCommentLikeRepo struct{ f *fakeRepository }

func (r *fakeCommentLikeRepo) Create(ctx context.Context, like *models.CommentLike) error {
	key := likeKey(like.CommentID, like.UserID)
	if _, exists := r.f.likes[key]; exists {
		return repositories.ErrDuplicateKey
	}
	like.ID = r.f.nextSequence()
	like.CreatedAt = time.Now()
	r.f.likes[key] = like
	return nil
}

func (r *fakeCommentLikeRepo) Delete(ctx context.Context, commentID uint, userID string) error {
	key := likeKey(commentID, userID)
	if _, exists := r.f.likes[key]; !exists {
		return repositories.ErrNotFound
	}
	delete(r.f.likes, key)
	return nil
}

func (r *fakeCommentLikeRepo) Exists(ctx context.Context, commentID uint, userID string) (bool, error) {
	_, exists := r.f.likes[likeKey(commentID, userID)]
	return exists, nil
}

func (r *fakeCommentLikeRepo) CountByComments(ctx context.Context, commentIDs []uint) (map[uint]int, error) {
	counts := map[uint]int{}
	for _, like := range r.f.likes {
		for _, id := range commentIDs {
			if like.CommentID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (r *fakeCommentLikeRepo) LikedSet(ctx context.Context, commentIDs []uint, userID string) (map[uint]bool, error) {
	liked := map[uint]bool{}
	for _, id := range commentIDs {
		if _, exists := r.f.likes[likeKey(id, userID)]; exists {
			liked[id] = true
		}
	}
	return liked, nil
}

// ===== RESOURCE =====

type fakeResourceRepo struct{ f *fakeRepository }

func (r *fakeResourceRepo) Create(ctx context.Context, resource *models.Resource) error {
	resource.ID = r.f.nextSequence()
	resource.Status = models.ResourcePending
	resource.VotesPositive = 0
	resource.VotesNegative = 0
	resource.ReviewedAt = nil
	resource.CreatedAt = time.Now()
	r.f.resources[resource.ID] = resource
	return nil
}

func (r *fakeResourceRepo) GetByID(ctx context.Context, id uint) (*models.Resource, error) {
	res, ok := r.f.resources[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *res
	return &copied, nil
}

func (r *fakeResourceRepo) List(ctx context.Context, filters repositories.ResourceFilters) ([]*models.Resource, error) {
	var out []*models.Resource
	for _, res := range r.f.resources {
		if filters.Status != nil && res.Status != *filters.Status {
			continue
		}
		if filters.ProfessorID != nil && res.ProfessorID != *filters.ProfessorID {
			continue
		}
		if filters.Type != nil && res.Type != *filters.Type {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeResourceRepo) ListApprovedByProfessor(ctx context.Context, professorID uint) ([]*models.Resource, error) {
	var out []*models.Resource
	for _, res := range r.f.resources {
		if res.ProfessorID == professorID && res.Status == models.ResourceApproved {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeResourceRepo) ListByUploader(ctx context.Context, uploaderID string) ([]*models.Resource, error) {
	var out []*models.Resource
	for _, res := range r.f.resources {
		if res.UploaderID == uploaderID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeResourceRepo) UpdateStatus(ctx context.Context, ids []uint, status models.ResourceStatus, reviewedAt time.Time) (int64, error) {
	var affected int64
	for _, id := range ids {
		res, ok := r.f.resources[id]
		if !ok {
			continue
		}
		res.Status = status
		at := reviewedAt
		res.ReviewedAt = &at
		affected++
	}
	return affected, nil
}

func (r *fakeResourceRepo) IncrementVote(ctx context.Context, id uint, positive bool) error {
	res, ok := r.f.resources[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if positive {
		res.VotesPositive++
	} else {
		res.VotesNegative++
	}
	return nil
}

func (r *fakeResourceRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := r.f.resources[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.resources, id)
	return nil
}

func (r *fakeResourceRepo) AdminStats(ctx context.Context) (*repositories.ResourceAdminStats, error) {
	stats := &repositories.ResourceAdminStats{}
	uploaders := map[string]bool{}
	for _, res := range r.f.resources {
		stats.Total++
		switch res.Status {
		case models.ResourcePending:
			stats.Pending++
		case models.ResourceApproved:
			stats.Approved++
		case models.ResourceRejected:
			stats.Rejected++
		}
		uploaders[res.UploaderID] = true
	}
	stats.ActiveUploaders = len(uploaders)
	return stats, nil
}

func (r *fakeResourceRepo) UploaderStats(ctx context.Context, uploaderID string) (*repositories.UploaderStats, error) {
	stats := &repositories.UploaderStats{}
	for _, res := range r.f.resources {
		if res.UploaderID != uploaderID {
			continue
		}
		stats.UploadedResources++
		if res.Status == models.ResourceApproved {
			stats.ApprovedResources++
		}
	}
	stats.Points = stats.ApprovedResources * 100
	return stats, nil
}

func (r *fakeResourceRepo) TopContributors(ctx context.Context, limit int) ([]*repositories.TopContributor, error) {
	if limit <= 0 {
		limit = 10
	}
	approved := map[string]int{}
	for _, res := range r.f.resources {
		if res.Status == models.ResourceApproved {
			approved[res.UploaderID]++
		}
	}

	out := make([]*repositories.TopContributor, 0, len(approved))
	for uploader, count := range approved {
		out = append(out, &repositories.TopContributor{
			UploaderID:        uploader,
			ApprovedResources: count,
			Points:            count * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ApprovedResources != out[j].ApprovedResources {
			return out[i].ApprovedResources > out[j].ApprovedResources
		}
		return out[i].UploaderID < out[j].UploaderID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ===== PROFILE =====

type fakeProfileRepo struct{ f *fakeRepository }

func (r *fakeProfileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	p, ok := r.f.profiles[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (r *fakeProfileRepo) IsPro(ctx context.Context, userID string) (bool, error) {
	p, ok := r.f.profiles[userID]
	if !ok {
		return false, nil
	}
	return p.IsPro, nil
}

// ===== ADMIN =====

type fakeAdminRepo struct{ f *fakeRepository }

func (r *fakeAdminRepo) Create(ctx context.Context, admin *models.AdminUser) error {
	if r.f.adminReadErr != nil {
		return r.f.adminReadErr
	}
	for _, a := range r.f.admins {
		if a.Email == admin.Email {
			return repositories.ErrDuplicateKey
		}
	}
	admin.ID = r.f.nextSequence()
	admin.CreatedAt = time.Now()
	r.f.admins[admin.ID] = admin
	return nil
}

func (r *fakeAdminRepo) GetActiveByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	if r.f.adminReadErr != nil {
		return nil, r.f.adminReadErr
	}
	for _, a := range r.f.admins {
		if strings.EqualFold(a.Email, email) && a.IsActive {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeAdminRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if r.f.adminReadErr != nil {
		return false, r.f.adminReadErr
	}
	for _, a := range r.f.admins {
		if strings.EqualFold(a.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAdminRepo) List(ctx context.Context) ([]*models.AdminUser, error) {
	if r.f.adminReadErr != nil {
		return nil, r.f.adminReadErr
	}
	out := make([]*models.AdminUser, 0, len(r.f.admins))
	for _, a := range r.f.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAdminRepo) UpdateStatus(ctx context.Context, id uint, isActive bool) (*models.AdminUser, error) {
	a, ok := r.f.admins[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	a.IsActive = isActive
	return a, nil
}

func (r *fakeAdminRepo) UpdateRole(ctx context.Context, id uint, role models.UserRole) (*models.AdminUser, error) {
	a, ok := r.f.admins[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	a.Role = role
	return a, nil
}

// ===== USER =====

type fakeUserRepo struct{ f *fakeRepository }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) LookupAccountID(ctx context.Context, email string) (string, error) {
	if r.f.userLookupErr != nil {
		return "", r.f.userLookupErr
	}
	for _, u := range r.f.users {
		if strings.EqualFold(u.Email, email) {
			return u.ID, nil
		}
	}
	return "", repositories.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	out := make([]*models.User, 0, len(r.f.users))
	for _, u := range r.f.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

// ===== TEST HELPERS =====

func (f *fakeRepository) addUser(id, email string) *models.User {
	u := &models.User{ID: id, Email: email, FullName: "Test " + id, Role: models.RoleUser}
	f.users[id] = u
	return u
}

func (f *fakeRepository) addAdmin(email string, role models.UserRole, active bool) *models.AdminUser {
	a := &models.AdminUser{
		ID:        f.nextSequence(),
		Email:     email,
		Role:      role,
		IsActive:  active,
		CreatedBy: "seed",
	}
	f.admins[a.ID] = a
	return a
}

func (f *fakeRepository) addProfessor(name string) *models.Professor {
	p := &models.Professor{ID: f.nextSequence(), Name: name}
	f.professors[p.ID] = p
	return p
}

func (f *fakeRepository) addResource(professorID uint, uploaderID string, status models.ResourceStatus) *models.Resource {
	r := &models.Resource{
		ID:          f.nextSequence(),
		ProfessorID: professorID,
		UploaderID:  uploaderID,
		FileName:    "notes.pdf",
		StoragePath: fmt.Sprintf("resources/%d/notes.pdf", professorID),
		Type:        models.ResourceNotes,
		Status:      status,
	}
	f.resources[r.ID] = r
	return r
}
