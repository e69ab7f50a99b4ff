package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskos/deskagent/provider"
)

// fakeProvider records probe calls so tests can observe short-circuiting.
type fakeProvider struct {
	typ       provider.Type
	available bool
	probes    int
	panics    bool
}

func (f *fakeProvider) Type() provider.Type                              { return f.typ }
func (f *fakeProvider) NewClient(opts any) provider.Client               { return nil }
func (f *fakeProvider) BuildOptions(base provider.ClientOptions) any     { return base }
func (f *fakeProvider) Parser() provider.StreamParser                    { return nil }
func (f *fakeProvider) CheckAvailability(ctx context.Context) bool {
	f.probes++
	if f.panics {
		panic("probe exploded")
	}
	return f.available
}

// fakeRegistry builds a registry over the given fakes, keyed by type.
func fakeRegistry(fakes ...*fakeProvider) *Registry {
	builders := make(map[provider.Type]Builder, len(fakes))
	for _, f := range fakes {
		f := f
		builders[f.typ] = func() provider.Provider { return f }
	}
	return &Registry{
		providers: make(map[provider.Type]provider.Provider),
		builders:  builders,
	}
}

func TestGet_MemoizesUntilClearCache(t *testing.T) {
	reg := New()

	first, err := reg.Get(provider.TypeClaude)
	require.NoError(t, err)
	second, err := reg.Get(provider.TypeClaude)
	require.NoError(t, err)
	assert.Same(t, first, second)

	reg.ClearCache()
	third, err := reg.Get(provider.TypeClaude)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestGet_UnknownType(t *testing.T) {
	reg := New()
	_, err := reg.Get(provider.Type("gemini"))
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestCheckAvailability_UnknownTypeIsFalse(t *testing.T) {
	reg := New()
	assert.False(t, reg.CheckAvailability(context.Background(), provider.Type("gemini")))
}

func TestCheckAvailability_PanickingProbeIsFalse(t *testing.T) {
	f := &fakeProvider{typ: provider.TypeClaude, panics: true}
	reg := fakeRegistry(f)

	assert.False(t, reg.CheckAvailability(context.Background(), provider.TypeClaude))
	assert.Equal(t, 1, f.probes)
}

func TestFirstAvailable_HonorsPriorityAndShortCircuits(t *testing.T) {
	claude := &fakeProvider{typ: provider.TypeClaude, available: true}
	codex := &fakeProvider{typ: provider.TypeCodex, available: true}
	reg := fakeRegistry(claude, codex)

	p, ok := reg.FirstAvailable(context.Background(), provider.TypeCodex, provider.TypeClaude)
	require.True(t, ok)
	assert.Equal(t, provider.TypeCodex, p.Type())
	assert.Equal(t, 1, codex.probes)
	assert.Zero(t, claude.probes)
}

func TestFirstAvailable_SkipsUnavailable(t *testing.T) {
	claude := &fakeProvider{typ: provider.TypeClaude, available: false}
	codex := &fakeProvider{typ: provider.TypeCodex, available: true}
	reg := fakeRegistry(claude, codex)

	p, ok := reg.FirstAvailable(context.Background(), provider.TypeClaude, provider.TypeCodex)
	require.True(t, ok)
	assert.Equal(t, provider.TypeCodex, p.Type())
	assert.Equal(t, 1, claude.probes)
}

func TestFirstAvailable_NoneAvailable(t *testing.T) {
	claude := &fakeProvider{typ: provider.TypeClaude}
	codex := &fakeProvider{typ: provider.TypeCodex}
	reg := fakeRegistry(claude, codex)

	p, ok := reg.FirstAvailable(context.Background())
	assert.False(t, ok)
	assert.Nil(t, p)
	assert.Equal(t, 1, claude.probes)
	assert.Equal(t, 1, codex.probes)
}

func TestAvailable_DeclarationOrder(t *testing.T) {
	claude := &fakeProvider{typ: provider.TypeClaude, available: true}
	codex := &fakeProvider{typ: provider.TypeCodex, available: true}
	reg := fakeRegistry(claude, codex)

	assert.Equal(t, []provider.Type{provider.TypeClaude, provider.TypeCodex},
		reg.Available(context.Background()))
}
