package reminder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopco/remindbot/internal/schedule"
)

var testNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "Reminders"), func() time.Time { return testNow })
	require.NoError(t, s.Init())
	return s
}

func dailyReminder(t *testing.T, owner, name string) Reminder {
	t.Helper()
	tod, err := schedule.ParseTimeOfDay("09:00:00+00:00")
	require.NoError(t, err)
	return Reminder{
		OwnerID:       owner,
		Name:          name,
		DestinationID: "555",
		Text:          "stand up",
		Cadence:       schedule.PerDay(1),
		TimeOfDay:     tod,
	}
}

func TestCreateOrReplaceComputesFirstFire(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "standup")))

	got, ok, err := s.Get(ctx, "42", "standup")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02 09:00:00+00:00", got.NextFireAt.Format(TimestampLayout))
	assert.True(t, got.LastFiredAt.IsZero())
}

func TestCreateOrReplaceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := dailyReminder(t, "42", "standup")
	want.Cadence = schedule.PerWeek(time.Thursday)
	want.NextFireAt = time.Date(2024, 1, 4, 9, 0, 0, 0, time.FixedZone("", 0))
	want.LastFiredAt = time.Date(2023, 12, 28, 9, 0, 1, 0, time.FixedZone("", 0))
	require.NoError(t, s.CreateOrReplace(ctx, want))

	got, ok, err := s.Get(ctx, "42", "standup")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.DestinationID, got.DestinationID)
	assert.Equal(t, want.Text, got.Text)
	assert.Equal(t, want.Cadence, got.Cadence)
	assert.Equal(t, want.TimeOfDay, got.TimeOfDay)
	assert.True(t, want.NextFireAt.Equal(got.NextFireAt))
	assert.True(t, want.LastFiredAt.Equal(got.LastFiredAt))
}

func TestCreateOrReplaceOverwritesByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := dailyReminder(t, "42", "standup")
	require.NoError(t, s.CreateOrReplace(ctx, first))

	second := dailyReminder(t, "42", "standup")
	second.Text = "retro"
	require.NoError(t, s.CreateOrReplace(ctx, second))
	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "other")))

	c, err := s.List(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, c.Reminders, 2)
	assert.Equal(t, "retro", c.Reminders["standup"].Text)
}

func TestOnDiskFormat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	weekly := dailyReminder(t, "42", "weekly")
	weekly.Cadence = schedule.PerWeek(time.Monday)
	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "daily")))
	require.NoError(t, s.CreateOrReplace(ctx, weekly))

	data, err := os.ReadFile(filepath.Join(s.dir, "42.json"))
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	daily := raw["daily"]
	assert.Equal(t, float64(42), daily["user_id"])
	assert.Equal(t, float64(555), daily["channel_id"])
	assert.Equal(t, true, daily["is_per_day"])
	assert.Equal(t, float64(1), daily["days"])
	assert.Nil(t, daily["week"])
	assert.Equal(t, "09:00:00+00:00", daily["time"])
	assert.Equal(t, "2024-01-02 09:00:00+00:00", daily["next_reminder"])
	assert.Equal(t, "", daily["before_remind"])

	w := raw["weekly"]
	assert.Equal(t, false, w["is_per_day"])
	assert.Nil(t, w["days"])
	assert.Equal(t, "Mon", w["week"])
	assert.Equal(t, "2024-01-08 09:00:00+00:00", w["next_reminder"])
}

func TestReadsLegacyWeeklyRecord(t *testing.T) {
	s := newTestStore(t)
	legacy := `{
  "gym": {
    "user_id": 7,
    "name": "gym",
    "channel_id": 8,
    "text": "go",
    "is_per_day": false,
    "days": 0,
    "time": "18:00:00+09:00",
    "week": "Fri",
    "next_reminder": "2024-01-05 18:00:00+09:00",
    "before_remind": ""
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "7.json"), []byte(legacy), 0o644))

	r, ok, err := s.Get(context.Background(), "7", "gym")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, schedule.PerWeek(time.Friday), r.Cadence)
	_, off := r.NextFireAt.Zone()
	assert.Equal(t, 9*3600, off)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "standup")))
	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "keep")))

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Delete(ctx, "42", "standup"))
		c, err := s.List(ctx, "42")
		require.NoError(t, err)
		assert.NotContains(t, c.Reminders, "standup")
		assert.Contains(t, c.Reminders, "keep")
	}
}

func TestDeleteUnknownOwner(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Delete(context.Background(), "404", "nothing"))

	_, err := os.Stat(filepath.Join(s.dir, "404.json"))
	assert.True(t, os.IsNotExist(err), "delete must not create a file")
}

func TestApplyUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "standup")))

	next := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	fired := time.Date(2024, 1, 2, 9, 0, 5, 0, time.UTC)
	require.NoError(t, s.ApplyUpdate(ctx, "42", "standup", Update{NextFireAt: &next, LastFiredAt: &fired}))

	got, ok, err := s.Get(ctx, "42", "standup")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, next.Equal(got.NextFireAt))
	assert.True(t, fired.Equal(got.LastFiredAt))
	assert.Equal(t, "stand up", got.Text, "untouched fields keep their value")
}

func TestApplyUpdateUnknownNameIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "standup")))

	text := "changed"
	require.NoError(t, s.ApplyUpdate(ctx, "42", "missing", Update{Text: &text}))
	require.NoError(t, s.ApplyUpdate(ctx, "999", "missing", Update{Text: &text}))

	c, err := s.List(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, c.Reminders, 1)
	assert.Equal(t, "stand up", c.Reminders["standup"].Text)
}

func TestApplyUpdateRename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "standup")))

	name := "daily-sync"
	require.NoError(t, s.ApplyUpdate(ctx, "42", "standup", Update{Name: &name}))

	c, err := s.List(ctx, "42")
	require.NoError(t, err)
	assert.NotContains(t, c.Reminders, "standup")
	assert.Equal(t, "daily-sync", c.Reminders["daily-sync"].Name)
}

func TestInvalidRecordsSurviveRewrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	broken := `{"broken": {"user_id": 42, "name": "broken", "channel_id": 1, "text": "x", "is_per_day": true, "days": 1, "time": "09:00:00", "week": null, "next_reminder": "not a time", "before_remind": ""}}`
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "42.json"), []byte(broken), 0o644))

	require.NoError(t, s.CreateOrReplace(ctx, dailyReminder(t, "42", "standup")))

	c, err := s.List(ctx, "42")
	require.NoError(t, err)
	assert.Contains(t, c.Reminders, "standup")
	assert.Contains(t, c.Invalid(), "broken")

	data, err := os.ReadFile(filepath.Join(s.dir, "42.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"not a time"`)
}

func TestCorruptFileIsNotOverwritten(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.dir, "42.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := s.CreateOrReplace(context.Background(), dailyReminder(t, "42", "standup"))
	require.ErrorIs(t, err, ErrCollectionUnreadable)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestListDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := dailyReminder(t, "1", "due")
	due.NextFireAt = testNow.Add(-time.Minute)
	later := dailyReminder(t, "2", "later")
	later.NextFireAt = testNow.Add(time.Hour)
	require.NoError(t, s.CreateOrReplace(ctx, due))
	require.NoError(t, s.CreateOrReplace(ctx, later))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "3.json"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("ignored"), 0o644))

	var owners []string
	var errs []error
	for c, err := range s.ListDue(ctx, testNow) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		owners = append(owners, c.OwnerID)
	}

	assert.Equal(t, []string{"1"}, owners)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrCollectionUnreadable)
}

func TestInvalidOwnerID(t *testing.T) {
	s := newTestStore(t)
	r := dailyReminder(t, "../etc", "x")
	assert.Error(t, s.CreateOrReplace(context.Background(), r))
}
