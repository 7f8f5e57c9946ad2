package pipeline

import (
	"fmt"

	"github.com/prezentinnynizwszystkie-ctrl/render/internal/models"
)

// ManifestEntry maps one logical asset to its storage key and the filename
// it gets inside the order workspace. Entries are immutable once built.
type ManifestEntry struct {
	Key        string
	RemotePath string
	LocalName  string
}

// Logical asset keys, in download order.
const (
	KeyChapter1Background = "chapter_1_background"
	KeyChapter2Background = "chapter_2_background"
	KeyChapter1Narration  = "chapter_1_narration"
	KeyChapter2Narration  = "chapter_2_narration"
	KeyChapter1Music      = "chapter_1_music"
	KeyChapter2Music      = "chapter_2_music"
	KeyUserPhoto          = "user_photo"
	KeyChapter1End        = "chapter_1_end"
	KeyMusicVideo         = "music_video"
)

// BuildManifest resolves the nine assets an order needs, mapping each
// logical key to its storage path. Pure string interpolation over the
// order attributes; the same order always yields the same manifest.
func BuildManifest(order *models.Order) []ManifestEntry {
	story := order.StoryTitle
	partner := order.PartnerName
	sex := order.RecipientSex
	id := order.OrderID

	return []ManifestEntry{
		{KeyChapter1Background, fmt.Sprintf("stories/%s/%s/%s/chapter_1.mp4", story, partner, sex), "bg1.mp4"},
		{KeyChapter2Background, fmt.Sprintf("stories/%s/%s/%s/chapter_2.mp4", story, partner, sex), "bg2.mp4"},
		{KeyChapter1Narration, fmt.Sprintf("%s/orders/%s/narration_1.mp3", partner, id), "1.mp3"},
		{KeyChapter2Narration, fmt.Sprintf("%s/orders/%s/narration_2.mp3", partner, id), "2.mp3"},
		{KeyChapter1Music, fmt.Sprintf("stories/%s/music_1.mp3", story), "3.mp3"},
		{KeyChapter2Music, fmt.Sprintf("stories/%s/music_2.mp3", story), "4.mp3"},
		{KeyUserPhoto, fmt.Sprintf("orders/%s/photo.jpg", id), "photo.jpg"},
		{KeyChapter1End, fmt.Sprintf("stories/%s/end_1.mp4", story), "end1.mp4"},
		{KeyMusicVideo, fmt.Sprintf("stories/%s/music_video.mp4", story), "music_video.mp4"},
	}
}

// OutputKey is the storage key a finished chapter is published under.
// Re-running an order overwrites the same keys.
func OutputKey(order *models.Order, chapter int) string {
	return fmt.Sprintf("%s/orders/%s/%s_%s_chapter_%d.mp4",
		order.PartnerName, order.OrderID, order.StoryTitle, order.PartnerName, chapter)
}
