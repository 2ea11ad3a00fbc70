package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/config"
	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func populatedState() domain.RunState {
	advisory := time.Date(2023, 9, 10, 15, 0, 0, 0, time.UTC)
	return domain.RunState{
		Cyclones: []domain.CycloneRecord{
			{
				ATCFID:              "AL132023",
				SeasonalID:          "AT13",
				UpdateToken:         "summary-al132023-202309101500",
				Classification:      "Hurricane",
				Name:                "Lee",
				Wind:                "120 mph",
				Category:            3,
				AdvisoryPublishedAt: &advisory,
				Basin:               "at",
				Center:              domain.Geo{Lat: 21.7, Lon: -61.9},
				Movement:            "WNW at 7 mph",
				Pressure:            "952 mb",
				Headline:            "LEE CONTINUES TO PRODUCE DANGEROUS SURF",
			},
			{ATCFID: "AL142023", SeasonalID: "AT14", UpdateToken: "g2", Classification: "Tropical Storm", Name: "Margot", Wind: "60 mph"},
		},
		TrackedIdentifiers:  []string{"AL132023"},
		BroadcastMessageIDs: []string{"1150000000000000001"},
		DigestMessageID:     "1150000000000000002",
		DigestNextDueAt:     time.Date(2023, 9, 11, 8, 0, 0, 0, time.UTC),
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state domain.RunState
	}{
		{"default", domain.NewRunState()},
		{"populated", populatedState()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.state)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.state, decoded)

			again, err := Encode(decoded)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again))
		})
	}
}

func TestEncode_DefaultDocument(t *testing.T) {
	data, err := Encode(domain.RunState{})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"cyclones": [],
		"trackedIdentifiers": [],
		"broadcastMessageIds": [],
		"digestMessageId": "",
		"digestNextDueAt": "0001-01-01T00:00:00Z"
	}`, string(data))
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "{not json", `{"cyclones": 5}`} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestDecode_MissingFieldsDefaulted(t *testing.T) {
	state, err := Decode([]byte(`{"digestMessageId":"m1"}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", state.DigestMessageID)
	assert.NotNil(t, state.Cyclones)
	assert.NotNil(t, state.TrackedIdentifiers)
	assert.NotNil(t, state.BroadcastMessageIDs)
}

func TestStore_LoadMissingReturnsDefaults(t *testing.T) {
	s := New(NewMemory(), discardLogger())

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.NewRunState(), state)
}

func TestStore_LoadCorruptReturnsDefaults(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.Write(context.Background(), []byte("{truncated")))
	s := New(mem, discardLogger())

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.NewRunState(), state)
}

type failingBackend struct{}

func (failingBackend) Read(context.Context) ([]byte, error) {
	return nil, errors.New("permission denied")
}
func (failingBackend) Write(context.Context, []byte) error { return errors.New("disk full") }
func (failingBackend) Driver() Driver                      { return DriverMemory }

func TestStore_BackendErrorsPropagate(t *testing.T) {
	s := New(failingBackend{}, discardLogger())

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read run state")

	err = s.Save(context.Background(), domain.NewRunState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write run state")
}

func TestStore_SaveThenLoad(t *testing.T) {
	s := New(NewMemory(), discardLogger())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, populatedState()))
	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, populatedState(), state)
}

func TestFile_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	f, err := NewFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.Write(ctx, []byte(`{"a":1}`)))
	require.NoError(t, f.Write(ctx, []byte(`{"a":2}`)))

	data, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should be cleaned up")
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{StateDriver: "fs", StatePath: filepath.Join(t.TempDir(), "state.json")}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.backend.Driver())

	s, err = Open(ctx, &config.Config{StateDriver: "memory"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.backend.Driver())

	_, err = Open(ctx, &config.Config{StateDriver: "redis"}, discardLogger())
	require.Error(t, err)
}
