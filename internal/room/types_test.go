package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom(capacity int, memberIDs ...string) *Room {
	r := &Room{ID: "ABCDE", Capacity: capacity, Status: StatusOpen, Kind: KindStudy}
	for _, id := range memberIDs {
		r.AddMember(Participant{ID: id, DisplayName: "user-" + id})
	}
	if len(r.Members) > 0 {
		r.HostID = r.Members[0].ID
	}
	return r
}

func TestAddMemberKeepsJoinOrderAndUniqueness(t *testing.T) {
	r := testRoom(4, "a", "b")
	r.AddMember(Participant{ID: "a"}) // duplicate, no-op
	r.AddMember(Participant{ID: "c"})

	require.Len(t, r.Members, 3)
	assert.Equal(t, "a", r.Members[0].ID)
	assert.Equal(t, "b", r.Members[1].ID)
	assert.Equal(t, "c", r.Members[2].ID)
}

func TestRemoveMemberReassignsHostToEarliestJoined(t *testing.T) {
	r := testRoom(4, "a", "b", "c")
	require.Equal(t, "a", r.HostID)

	require.True(t, r.RemoveMember("a"))
	assert.Equal(t, "b", r.HostID, "host must pass to the earliest-joined remaining member")

	require.True(t, r.RemoveMember("b"))
	assert.Equal(t, "c", r.HostID)

	require.True(t, r.RemoveMember("c"))
	assert.Empty(t, r.HostID)
	assert.True(t, r.Empty())
}

func TestRemoveMemberNonHostKeepsHost(t *testing.T) {
	r := testRoom(4, "a", "b", "c")

	require.True(t, r.RemoveMember("b"))
	assert.Equal(t, "a", r.HostID)
	assert.False(t, r.RemoveMember("b"), "removing an absent member reports false")
}

func TestFull(t *testing.T) {
	r := testRoom(2, "a")
	assert.False(t, r.Full())
	r.AddMember(Participant{ID: "b"})
	assert.True(t, r.Full())
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	r := testRoom(4, "a", "b")
	snap := r.Snapshot()

	snap.Members[0].ID = "mutated"
	snap.HostID = "mutated"

	assert.Equal(t, "a", r.Members[0].ID)
	assert.Equal(t, "a", r.HostID)
}

func TestIsMember(t *testing.T) {
	r := testRoom(4, "a")
	assert.True(t, r.IsMember("a"))
	assert.True(t, r.IsMember(SystemSenderID), "system pseudo-participant may always send")
	assert.False(t, r.IsMember("z"))
}

func TestMessageDirected(t *testing.T) {
	assert.False(t, Message{Body: "hi"}.Directed())
	assert.True(t, Message{Body: "psst", RecipientID: "b"}.Directed())
}

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewCode()
		require.True(t, ValidCode(code), "generated code %q must validate", code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should almost never collide in 100 draws")
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"ABCDE", true},
		{"A2C4E", true},
		{"abcde", false}, // callers normalize first
		{"ABCD", false},
		{"ABCDEF", false},
		{"ABC0E", false}, // 0 excluded from the alphabet
		{"ABC1E", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidCode(tt.code), "code %q", tt.code)
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCDE", NormalizeCode("  abcde "))
}
