package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemLists(t *testing.T) {
	assert.Len(t, SystemLists, 3)

	ids := []string{SystemListReading, SystemListWillRead, SystemListRead}
	for i, sl := range SystemLists {
		assert.Equal(t, ids[i], sl.ID)
		assert.Equal(t, i, sl.SortOrder)
		assert.True(t, IsSystemListID(sl.ID))

		list := sl.NewReadingList(time.Now())
		assert.True(t, list.IsSystem())
		assert.Equal(t, SyncPending, list.SyncStatus)
	}

	assert.False(t, IsSystemListID("list-abc"))
}

func TestNextSortOrder(t *testing.T) {
	assert.Equal(t, 0, NextSortOrder(nil))

	lists := []*ReadingList{{SortOrder: 2}, {SortOrder: 7}, {SortOrder: 0}}
	assert.Equal(t, 8, NextSortOrder(lists))

	rows := []*ListBook{{SortOrder: 0}, {SortOrder: 1}}
	assert.Equal(t, 2, NextListBookSortOrder(rows))
	assert.Equal(t, 0, NextListBookSortOrder(nil))
}

func TestSyncable_Transitions(t *testing.T) {
	var s Syncable
	now := Now()

	s.Touch(now)
	assert.Equal(t, SyncPending, s.SyncStatus)

	s.MarkSynced("srv-1", now)
	assert.Equal(t, SyncSynced, s.SyncStatus)
	assert.Equal(t, "srv-1", *s.ServerID)

	s.MarkConflict(now)
	assert.Equal(t, SyncConflict, s.SyncStatus)

	assert.True(t, SyncConflict.Valid())
	assert.False(t, SyncStatus("bogus").Valid())
}

func TestMillisRoundTrip(t *testing.T) {
	now := Now()
	assert.Equal(t, now, FromMillis(Millis(now)))
	assert.Equal(t, int64(0), now.UnixNano()%int64(time.Millisecond))
}

func TestNewCustomList_Defaults(t *testing.T) {
	now := Now()
	l := NewCustomList("list-1", "Favorites", "", "", 3, now)

	assert.Equal(t, ListTypeCustom, l.ListType)
	assert.Equal(t, DefaultListIcon, l.Icon)
	assert.Equal(t, DefaultListColor, l.Color)
	assert.Equal(t, 3, l.SortOrder)
	assert.False(t, l.IsSystem())
	assert.Equal(t, now, l.CreatedAt)
}
