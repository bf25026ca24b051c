package services_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/itf"
)

const testPassword = "s3cure-pass"

func setupTest(t *testing.T, opts ...func(*core.ModuleOptions)) *itf.TestEnvironment {
	t.Helper()
	tc := itf.NewTestContext()
	for _, opt := range opts {
		tc.WithOptions(opt)
	}
	return tc.Build(t)
}

// registerOrg signs up an organization and returns the admin's result.
func registerOrg(t *testing.T, env *itf.TestEnvironment, name, email string) *services.AuthResult {
	t.Helper()
	res, err := itf.GetService[services.AuthService](env).Register(env.Ctx, &services.RegisterDTO{
		OrganizationName: name,
		AdminName:        "Amal Saleh",
		Email:            email,
		Password:         testPassword,
		Country:          "SA",
		Currency:         "sar",
		Language:         "ar",
	})
	require.NoError(t, err)
	return res
}

// actingAs resolves the access token of res into a request context, the same
// way the HTTP layer does.
func actingAs(t *testing.T, env *itf.TestEnvironment, res *services.AuthResult) context.Context {
	t.Helper()
	tc, err := itf.GetService[services.TokenService](env).Resolve(res.Tokens.AccessToken)
	require.NoError(t, err)
	return env.As(tc)
}

// inviteAndAccept invites a staff member as the caller and activates the
// account through the invite token.
func inviteAndAccept(t *testing.T, env *itf.TestEnvironment, ctx context.Context, dto *services.InviteDTO) *services.AuthResult {
	t.Helper()
	invites := itf.Capture[*user.InvitedEvent](env)
	_, err := itf.GetService[services.UserService](env).Invite(ctx, dto)
	require.NoError(t, err)
	seen := invites()
	require.NotEmpty(t, seen)
	res, err := itf.GetService[services.AuthService](env).AcceptInvite(env.Ctx, &services.AcceptInviteDTO{
		Token:    seen[len(seen)-1].Token,
		Password: testPassword,
	})
	require.NoError(t, err)
	return res
}

// testClock runs ahead of the wall clock by a settable amount.
type testClock struct {
	skew atomic.Int64
}

func (c *testClock) Now() time.Time {
	return time.Now().Add(time.Duration(c.skew.Load()))
}

func (c *testClock) Advance(d time.Duration) {
	c.skew.Add(int64(d))
}

func withClock(c *testClock) func(*core.ModuleOptions) {
	return func(opts *core.ModuleOptions) {
		opts.Tokens.Now = c.Now
	}
}
