package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/pkg/ids"
)

func TestRegisterFederate_RejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterFederate(&FederateInfo{ID: 1, Name: "gen1"}))
	assert.False(t, r.RegisterFederate(&FederateInfo{ID: 2, Name: "gen1"}))
}

func TestRegisterFederate_SameIDReRegisterSucceeds(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.RegisterFederate(&FederateInfo{ID: 1, Name: "gen1"}))
	assert.True(t, r.RegisterFederate(&FederateInfo{ID: 1, Name: "gen1"}))
}

func TestRemoveFederate_DropsInterfaces(t *testing.T) {
	r := NewRegistry()
	r.RegisterFederate(&FederateInfo{ID: 1, Name: "gen1"})
	h := r.RegisterInterface(&InterfaceInfo{Handle: ids.GlobalHandle{Federate: 1}, Name: "pub1", Kind: KindPublication})

	r.RemoveFederate(1)

	assert.Nil(t, r.FederateByID(1))
	assert.Nil(t, r.Interface(h))
}

func TestFederateByName_FindsRegistered(t *testing.T) {
	r := NewRegistry()
	r.RegisterFederate(&FederateInfo{ID: 7, Name: "load1"})
	got := r.FederateByName("load1")
	require.NotNil(t, got)
	assert.Equal(t, ids.GlobalFederateId(7), got.ID)
}

func TestRegisterInterface_AllocatesSequentialHandles(t *testing.T) {
	r := NewRegistry()
	fed := ids.GlobalFederateId(3)

	h1 := r.RegisterInterface(&InterfaceInfo{Handle: ids.GlobalHandle{Federate: fed}, Name: "a"})
	h2 := r.RegisterInterface(&InterfaceInfo{Handle: ids.GlobalHandle{Federate: fed}, Name: "b"})

	assert.Equal(t, ids.InterfaceHandle(0), h1.Handle)
	assert.Equal(t, ids.InterfaceHandle(1), h2.Handle)
}

func TestFederates_ReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.RegisterFederate(&FederateInfo{ID: 1, Name: "a"})
	r.RegisterFederate(&FederateInfo{ID: 2, Name: "b"})
	assert.Len(t, r.Federates(), 2)
}
