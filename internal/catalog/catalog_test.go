package catalog

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
)

func imageEntry(id, prompt string) Entry {
	return Entry{
		ID:       id,
		Kind:     backend.KindImage,
		Prompt:   prompt,
		Model:    "imagen-test",
		URL:      "https://media.invalid/images/" + id + ".png",
		MIMEType: "image/png",
	}
}

func TestCatalog_AddAndGet(t *testing.T) {
	c := NewCatalog()

	require.NoError(t, c.Add(imageEntry("img_001", "a fox")))

	entry, err := c.Get("img_001")
	require.NoError(t, err)
	assert.Equal(t, "a fox", entry.Prompt)
	assert.Equal(t, backend.KindImage, entry.Kind)
	assert.False(t, entry.CreatedAt.IsZero(), "CreatedAt must be stamped on add")
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_GetUnknownID(t *testing.T) {
	c := NewCatalog()

	_, err := c.Get("img_missing")

	var notFound *EntryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "img_missing", notFound.ID)
	assert.Contains(t, err.Error(), "img_missing")
}

func TestCatalog_DuplicateIDRejected(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(imageEntry("img_001", "first")))

	err := c.Add(imageEntry("img_001", "second"))

	var duplicate *DuplicateEntryError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "img_001", duplicate.ID)

	entry, getErr := c.Get("img_001")
	require.NoError(t, getErr)
	assert.Equal(t, "first", entry.Prompt, "original entry must survive a duplicate add")
}

func TestCatalog_RejectsEmptyID(t *testing.T) {
	c := NewCatalog()
	require.Error(t, c.Add(Entry{Kind: backend.KindImage}))
	assert.Equal(t, 0, c.Len())
}

func TestCatalog_ListNewestFirst(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(imageEntry("img_001", "first")))
	require.NoError(t, c.Add(imageEntry("img_002", "second")))
	require.NoError(t, c.Add(imageEntry("img_003", "third")))

	entries := c.List("", 0)
	require.Len(t, entries, 3)
	assert.Equal(t, "img_003", entries[0].ID)
	assert.Equal(t, "img_002", entries[1].ID)
	assert.Equal(t, "img_001", entries[2].ID)
}

func TestCatalog_ListFiltersByKind(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(imageEntry("img_001", "a fox")))
	require.NoError(t, c.Add(Entry{
		ID:       "vid_001",
		Kind:     backend.KindVideo,
		Prompt:   "a boat",
		Model:    "veo-test",
		URL:      "https://media.invalid/videos/001.mp4",
		MIMEType: "video/mp4",
	}))
	require.NoError(t, c.Add(imageEntry("img_002", "a crow")))

	videos := c.List(backend.KindVideo, 0)
	require.Len(t, videos, 1)
	assert.Equal(t, "vid_001", videos[0].ID)

	images := c.List(backend.KindImage, 0)
	require.Len(t, images, 2)
	assert.Equal(t, "img_002", images[0].ID)
	assert.Equal(t, "img_001", images[1].ID)
}

func TestCatalog_ListHonorsLimit(t *testing.T) {
	c := NewCatalog()
	for i := 1; i <= 5; i++ {
		require.NoError(t, c.Add(imageEntry(fmt.Sprintf("img_%03d", i), "x")))
	}

	entries := c.List("", 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "img_005", entries[0].ID)
	assert.Equal(t, "img_004", entries[1].ID)
}

func TestCatalog_ListEmpty(t *testing.T) {
	c := NewCatalog()
	assert.Empty(t, c.List("", 0))
	assert.Empty(t, c.List(backend.KindVideo, 10))
}

func TestCatalog_KeepsCallerTimestamp(t *testing.T) {
	c := NewCatalog()
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	entry := imageEntry("img_001", "a fox")
	entry.CreatedAt = stamp
	require.NoError(t, c.Add(entry))

	got, err := c.Get("img_001")
	require.NoError(t, err)
	assert.Equal(t, stamp, got.CreatedAt)
}

func TestCatalog_ConcurrentAddAndList(t *testing.T) {
	c := NewCatalog()

	var wg sync.WaitGroup
	for worker := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				id := fmt.Sprintf("img_%d_%d", worker, i)
				assert.NoError(t, c.Add(imageEntry(id, "x")))
				c.List(backend.KindImage, 10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, c.Len())
}
