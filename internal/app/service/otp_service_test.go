package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"notekeeper/internal/common"
	"notekeeper/internal/common/security"
	"notekeeper/internal/domain/model"
	"notekeeper/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOTPLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	gen, err := f.otp.Generate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "success", gen.Status)
	assert.Len(t, gen.OTPBase32, 34) // 21 bytes, unpadded base32
	assert.Equal(t,
		"otpauth://totp/NoteKeeperAPI:alice@example.com?secret="+gen.OTPBase32+"&issuer=NoteKeeperAPI",
		gen.OTPAuthURL)

	u, err := f.auth.Profile(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.OTPEnabled)
	assert.False(t, u.OTPVerified)

	// validating before verification is refused even with a correct code
	code, err := security.GenerateOTPCode(gen.OTPBase32, f.clock.Now())
	require.NoError(t, err)
	_, err = f.otp.ValidateForLogin(ctx, id, code)
	require.ErrorIs(t, err, common.ErrOTPNotVerified)

	u, err = f.otp.Verify(ctx, id, code)
	require.NoError(t, err)
	assert.True(t, u.OTPEnabled)
	assert.True(t, u.OTPVerified)

	u, err = f.otp.ValidateForLogin(ctx, id, code)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	u, err = f.otp.Disable(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.OTPEnabled)
	assert.False(t, u.OTPVerified)
	assert.Nil(t, u.OTPBase32)
	assert.Nil(t, u.OTPAuthURL)

	// disabling twice is fine
	_, err = f.otp.Disable(ctx, id)
	require.NoError(t, err)
}

func TestOTPVerify_WrongCodeDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	gen, err := f.otp.Generate(ctx, id)
	require.NoError(t, err)

	code, _ := security.GenerateOTPCode(gen.OTPBase32, f.clock.Now())
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.otp.Verify(ctx, id, wrong)
	require.ErrorIs(t, err, common.ErrInvalidOTP)
	assert.Equal(t, 403, common.HTTPStatusFromError(err))

	u, _ := f.auth.Profile(ctx, id)
	assert.False(t, u.OTPVerified)
	assert.Equal(t, gen.OTPBase32, *u.OTPBase32)
}

func TestOTPVerify_WithoutSecret(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")

	_, err := f.otp.Verify(context.Background(), id, "123456")
	require.ErrorIs(t, err, common.ErrOTPNotEnabled)
}

func TestOTPRegenerateResetsVerification(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	gen, _ := f.otp.Generate(ctx, id)
	code, _ := security.GenerateOTPCode(gen.OTPBase32, f.clock.Now())
	_, err := f.otp.Verify(ctx, id, code)
	require.NoError(t, err)

	gen2, err := f.otp.Generate(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, gen.OTPBase32, gen2.OTPBase32)

	u, _ := f.auth.Profile(ctx, id)
	assert.True(t, u.OTPEnabled)
	assert.False(t, u.OTPVerified)
}

// regeneratingRepo swaps in a fresh secret right after the user is read,
// as a concurrent Generate would.
type regeneratingRepo struct {
	repository.UserRepository
	regenerate func()
}

func (r *regeneratingRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := r.UserRepository.FindByID(ctx, id)
	if err == nil && r.regenerate != nil {
		r.regenerate()
		r.regenerate = nil
	}
	return u, err
}

func TestOTPVerify_SecretRegeneratedMidway(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	gen, err := f.otp.Generate(ctx, id)
	require.NoError(t, err)
	code, err := security.GenerateOTPCode(gen.OTPBase32, f.clock.Now())
	require.NoError(t, err)

	var fresh *OTPGenerateResponse
	repo := &regeneratingRepo{UserRepository: f.store.Users()}
	repo.regenerate = func() {
		var genErr error
		fresh, genErr = f.otp.Generate(ctx, id)
		assert.NoError(t, genErr)
	}
	racing := NewOTPService(repo, f.pool, "NoteKeeperAPI", zap.NewNop()).WithClock(f.clock.Now)

	_, err = racing.Verify(ctx, id, code)
	require.ErrorIs(t, err, common.ErrInvalidOTP)

	u, err := f.auth.Profile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, fresh.OTPBase32, *u.OTPBase32)
	assert.False(t, u.OTPVerified)
}

func TestOTPValidate_ClockSkew(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	gen, _ := f.otp.Generate(ctx, id)
	code, _ := security.GenerateOTPCode(gen.OTPBase32, f.clock.Now())
	_, err := f.otp.Verify(ctx, id, code)
	require.NoError(t, err)

	// one step later the previous code is still accepted
	f.clock.Advance(30 * time.Second)
	_, err = f.otp.ValidateForLogin(ctx, id, code)
	require.NoError(t, err)

	// three steps later it is not
	f.clock.Advance(60 * time.Second)
	_, err = f.otp.ValidateForLogin(ctx, id, code)
	require.ErrorIs(t, err, common.ErrInvalidOTP)
}

func TestOTPValidate_RejectsMalformedCodes(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	gen, _ := f.otp.Generate(ctx, id)
	code, _ := security.GenerateOTPCode(gen.OTPBase32, f.clock.Now())
	_, err := f.otp.Verify(ctx, id, code)
	require.NoError(t, err)

	for _, bad := range []string{"", code[:5], code + "0", "abcdef"} {
		_, err := f.otp.ValidateForLogin(ctx, id, bad)
		assert.ErrorIs(t, err, common.ErrInvalidOTP, bad)
	}
}

func TestOTPQRCode(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	_, err := f.otp.QRCode(ctx, id)
	require.ErrorIs(t, err, common.ErrOTPNotEnabled)

	_, err = f.otp.Generate(ctx, id)
	require.NoError(t, err)

	png, err := f.otp.QRCode(ctx, id)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestOTPGenerate_StoreFailure(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	f.store.FailOn["SetOTP"] = errBoom

	_, err := f.otp.Generate(context.Background(), id)
	require.ErrorIs(t, err, errBoom)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to store otp secret"))
}
