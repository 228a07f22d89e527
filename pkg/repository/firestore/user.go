package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{client: client}
}

func (r *userRepository) usersCollection() string {
	return prefixed(r.collectionPrefix, "users")
}

func (r *userRepository) teamsCollection() string {
	return prefixed(r.collectionPrefix, "teams")
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	if _, err := r.client.Collection(r.usersCollection()).Doc(user.ID.String()).Set(ctx, user); err != nil {
		return goerr.Wrap(err, "failed to put user", goerr.V("id", user.ID))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	u, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return u, nil
}

// find returns nil without error when the user does not exist
func (r *userRepository) find(ctx context.Context, id model.UserID) (*model.User, error) {
	docSnap, err := r.client.Collection(r.usersCollection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	var u model.User
	if err := docSnap.DataTo(&u); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("id", id))
	}
	return &u, nil
}

func (r *userRepository) PutTeam(ctx context.Context, team *model.Team) error {
	if _, err := r.client.Collection(r.teamsCollection()).Doc(string(team.ID)).Set(ctx, team); err != nil {
		return goerr.Wrap(err, "failed to put team", goerr.V("id", team.ID))
	}
	return nil
}

func (r *userRepository) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	docSnap, err := r.client.Collection(r.teamsCollection()).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "team not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get team", goerr.V("id", id))
	}

	var t model.Team
	if err := docSnap.DataTo(&t); err != nil {
		return nil, goerr.Wrap(err, "failed to decode team", goerr.V("id", id))
	}
	return &t, nil
}
