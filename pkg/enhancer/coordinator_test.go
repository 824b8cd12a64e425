package enhancer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	id string
}

func (s *stubService) Enhance(_ context.Context, req Request) (Response, error) {
	return Response{Prompt: s.id + ":" + req.Prompt}, nil
}

func stubFactories() map[string]Factory {
	return map[string]Factory{
		ModeCommand: func() (Service, error) { return &stubService{id: "command"}, nil },
		ModeGemini:  func() (Service, error) { return &stubService{id: "gemini"}, nil },
	}
}

func TestNewCoordinatorRejectsUnsupportedDefault(t *testing.T) {
	_, err := NewCoordinator("telepathy", stubFactories())
	require.Error(t, err)

	var modeErr *ModeNotSupportedError
	require.True(t, errors.As(err, &modeErr))
	assert.Equal(t, "telepathy", modeErr.Mode)
}

func TestNewCoordinatorNormalizesDefault(t *testing.T) {
	c, err := NewCoordinator("  Gemini ", stubFactories())
	require.NoError(t, err)
	assert.Equal(t, ModeGemini, c.DefaultMode())
}

func TestGetCachesInstances(t *testing.T) {
	c, err := NewCoordinator(ModeCommand, stubFactories())
	require.NoError(t, err)

	first, err := c.Get(ModeCommand)
	require.NoError(t, err)

	for _, name := range []string{"command", " COMMAND ", "Command"} {
		again, err := c.Get(name)
		require.NoError(t, err)
		assert.Same(t, first, again, "lookup %q should return the cached instance", name)
	}
}

func TestGetEmptyModeUsesDefault(t *testing.T) {
	c, err := NewCoordinator(ModeGemini, stubFactories())
	require.NoError(t, err)

	svc, err := c.Get("")
	require.NoError(t, err)

	viaName, err := c.Get(ModeGemini)
	require.NoError(t, err)
	assert.Same(t, viaName, svc)
}

func TestGetUnsupportedMode(t *testing.T) {
	c, err := NewCoordinator(ModeCommand, stubFactories())
	require.NoError(t, err)

	for _, name := range []string{"selenium", "COMMANDO", "x"} {
		_, err := c.Get(name)
		require.Error(t, err)

		var modeErr *ModeNotSupportedError
		require.True(t, errors.As(err, &modeErr))
		assert.Equal(t, name, modeErr.Mode)
	}
}

func TestGetDoesNotCacheFailedConstruction(t *testing.T) {
	attempts := 0
	factories := stubFactories()
	factories[ModeGemini] = func() (Service, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("no browser profile")
		}
		return &stubService{id: "gemini"}, nil
	}

	c, err := NewCoordinator(ModeCommand, factories)
	require.NoError(t, err)

	_, err = c.Get(ModeGemini)
	require.Error(t, err)

	svc, err := c.Get(ModeGemini)
	require.NoError(t, err)
	assert.NotNil(t, svc)
	assert.Equal(t, 2, attempts)
}
