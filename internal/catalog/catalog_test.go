package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPackagesValidate(t *testing.T) {
	reg, err := New(DefaultPackages())
	require.NoError(t, err)

	def := reg.Default()
	assert.Equal(t, "basic", def.Key)
	assert.True(t, def.Free)

	for _, p := range reg.All() {
		for _, svc := range Services {
			_, ok := p.Quota(svc)
			assert.Truef(t, ok, "package %s missing quota for %s", p.Key, svc)
		}
	}
}

func TestNewRejectsMissingQuota(t *testing.T) {
	pkgs := DefaultPackages()
	delete(pkgs[1].Quotas, ServiceVoiceMusic)

	_, err := New(pkgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice_music")
}

func TestNewRequiresSingleFreeDefault(t *testing.T) {
	pkgs := DefaultPackages()
	pkgs[0].Default = false
	_, err := New(pkgs)
	require.Error(t, err)

	pkgs = DefaultPackages()
	pkgs[1].Default = true
	_, err = New(pkgs)
	require.Error(t, err)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	reg, err := New(DefaultPackages())
	require.NoError(t, err)

	assert.Equal(t, "basic", reg.Resolve(nil).Key)

	missing := "gold"
	assert.Equal(t, "basic", reg.Resolve(&missing).Key)

	pro := "pro"
	assert.Equal(t, "pro", reg.Resolve(&pro).Key)

	_, err = reg.Get("gold")
	assert.True(t, errors.Is(err, ErrUnknownPackage))
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg, err := New(DefaultPackages())
	require.NoError(t, err)

	p, err := reg.Get("pro")
	require.NoError(t, err)
	p.Quotas[ServiceChat] = 1

	again, err := reg.Get("pro")
	require.NoError(t, err)
	assert.Equal(t, Unlimited, again.Quotas[ServiceChat])
}

func TestPaidSortedByPrice(t *testing.T) {
	reg, err := New(DefaultPackages())
	require.NoError(t, err)

	paid := reg.Paid()
	require.Len(t, paid, 2)
	assert.Equal(t, "standard", paid[0].Key)
	assert.Equal(t, "pro", paid[1].Key)
}
