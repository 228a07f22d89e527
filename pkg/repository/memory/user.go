package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[model.UserID]*model.User
	teams map[model.TeamID]*model.Team
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[model.UserID]*model.User),
		teams: make(map[model.TeamID]*model.Team),
	}
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	u, ok := r.lookup(id)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return u, nil
}

func (r *userRepository) lookup(id model.UserID) (*model.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, false
	}
	c := *u
	return &c, true
}

func (r *userRepository) PutTeam(ctx context.Context, team *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *team
	r.teams[team.ID] = &c
	return nil
}

func (r *userRepository) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "team not found", goerr.V("id", id))
	}
	c := *t
	return &c, nil
}
