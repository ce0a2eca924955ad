package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

type fakeUserRepo struct {
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[int64]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.nextID++
	user.ID = f.nextID
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByName(ctx context.Context, name string) (*models.User, error) {
	for _, user := range f.byID {
		if user.Name == name {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(f.byID))
	for _, user := range f.byID {
		users = append(users, *user)
	}
	return users, nil
}

func TestCreateUserHashesAndDefaultsRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, plainHasher{}, zap.NewNop())

	user, err := svc.Create(context.Background(), "  alex  ", "secret123", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.Name != "alex" {
		t.Fatalf("name = %q, want trimmed alex", user.Name)
	}
	if user.Role != "user" {
		t.Fatalf("role = %q, want default user", user.Role)
	}
	if user.PasswordHash != "hash:secret123" {
		t.Fatalf("password not hashed: %q", user.PasswordHash)
	}
}

func TestCreateUserRejectsDuplicateName(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, plainHasher{}, zap.NewNop())

	if _, err := svc.Create(context.Background(), "alex", "secret123", "admin"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(context.Background(), "alex", "other-pass", ""); !errors.Is(err, ErrNameInUse) {
		t.Fatalf("duplicate create = %v, want ErrNameInUse", err)
	}
}

func TestUpdateUserAppliesPartialChanges(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, plainHasher{}, zap.NewNop())

	created, err := svc.Create(context.Background(), "alex", "secret123", "user")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	role := "admin"
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Role: &role})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Role != "admin" {
		t.Fatalf("role = %q, want admin", updated.Role)
	}
	if updated.Name != "alex" || updated.PasswordHash != "hash:secret123" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateUserRejectsTakenName(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, plainHasher{}, zap.NewNop())

	if _, err := svc.Create(context.Background(), "alex", "secret123", ""); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	second, err := svc.Create(context.Background(), "kim", "secret123", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	name := "alex"
	if _, err := svc.Update(context.Background(), second.ID, UpdateInput{Name: &name}); !errors.Is(err, ErrNameInUse) {
		t.Fatalf("rename to taken name = %v, want ErrNameInUse", err)
	}
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, plainHasher{}, zap.NewNop())

	created, err := svc.Create(context.Background(), "alex", "secret123", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("second delete = %v, want ErrUserNotFound", err)
	}
}
