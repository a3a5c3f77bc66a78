package gift

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// CurrentSchemaVersion is the schema version written by this build.
// Imports and stored records with an older version are migrated on read.
const CurrentSchemaVersion = 3

// MediaMode selects how a screen presents its media
type MediaMode string

const (
	MediaModeClassic MediaMode = "classic"
	MediaModeVideo   MediaMode = "video"
)

// OverlayType is the intro overlay shown before the first screen
type OverlayType string

const (
	OverlayHeart       OverlayType = "heart"
	OverlayBirthday    OverlayType = "birthday"
	OverlaySaveTheDate OverlayType = "save_the_date"
	OverlayCustom      OverlayType = "custom"
)

// OverlayTypes lists every accepted overlay type
var OverlayTypes = []OverlayType{OverlayHeart, OverlayBirthday, OverlaySaveTheDate, OverlayCustom}

// Project is the top-level editable gift document.
// Values are treated as immutable snapshots: use Clone before changing a copy
// that is shared with the store.
type Project struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	TemplateID    string      `json:"templateId"`
	SchemaVersion int         `json:"schemaVersion"`
	Language      string      `json:"language"`
	Data          ProjectData `json:"data"`
	CreatedAt     time.Time   `json:"createdAt,omitzero"`
	UpdatedAt     time.Time   `json:"updatedAt,omitzero"`
}

// ProjectData is the template content of a project
type ProjectData struct {
	Screens map[string]ScreenData `json:"screens"`
	Images  []MediaRef            `json:"images"`
	Videos  []MediaRef            `json:"videos"`
	Audio   AudioData             `json:"audio"`
	Overlay Overlay               `json:"overlay"`
}

// ScreenData is one slide of a project.
// Optional fields use pointers so that "absent" and "zero" stay distinguishable.
type ScreenData struct {
	MediaMode         MediaMode  `json:"mediaMode"`
	VideoID           *string    `json:"videoId,omitempty"`
	Images            []MediaRef `json:"images"`
	AudioID           *string    `json:"audioId,omitempty"`
	ExtendMusicToNext *bool      `json:"extendMusicToNext,omitempty"`
	GalleryLayout     *string    `json:"galleryLayout,omitempty"`
}

// MediaRef is a back-reference to a blob owned by the media manager
type MediaRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// AudioData maps screens to their background track
type AudioData struct {
	Screens map[string]MediaRef `json:"screens"`
}

// Overlay holds the intro overlay configuration
type Overlay struct {
	Type       OverlayType `json:"type"`
	MainText   *string     `json:"mainText,omitempty"`
	SubText    *string     `json:"subText,omitempty"`
	ButtonText *string     `json:"buttonText,omitempty"`
}

// NewProjectData returns the empty content every new project starts with
func NewProjectData() ProjectData {
	return ProjectData{
		Screens: map[string]ScreenData{},
		Images:  []MediaRef{},
		Videos:  []MediaRef{},
		Audio:   AudioData{Screens: map[string]MediaRef{}},
		Overlay: Overlay{Type: OverlayHeart},
	}
}

// NewProjectID returns a time-ordered id (UUIDv7: millisecond timestamp plus random bits)
func NewProjectID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// HasVideo reports whether id names an entry of Data.Videos
func (p *Project) HasVideo(id string) bool {
	for _, v := range p.Data.Videos {
		if v.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the project
func (p Project) Clone() Project {
	out := p
	out.Data = p.Data.Clone()
	return out
}

// Clone returns a deep copy of the project data
func (d ProjectData) Clone() ProjectData {
	out := ProjectData{
		Images:  slices.Clone(d.Images),
		Videos:  slices.Clone(d.Videos),
		Audio:   AudioData{Screens: maps.Clone(d.Audio.Screens)},
		Overlay: d.Overlay.Clone(),
	}
	if d.Screens != nil {
		out.Screens = make(map[string]ScreenData, len(d.Screens))
		for id, screen := range d.Screens {
			out.Screens[id] = screen.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the screen
func (s ScreenData) Clone() ScreenData {
	return ScreenData{
		MediaMode:         s.MediaMode,
		VideoID:           clonePtr(s.VideoID),
		Images:            slices.Clone(s.Images),
		AudioID:           clonePtr(s.AudioID),
		ExtendMusicToNext: clonePtr(s.ExtendMusicToNext),
		GalleryLayout:     clonePtr(s.GalleryLayout),
	}
}

// Clone returns a deep copy of the overlay
func (o Overlay) Clone() Overlay {
	return Overlay{
		Type:       o.Type,
		MainText:   clonePtr(o.MainText),
		SubText:    clonePtr(o.SubText),
		ButtonText: clonePtr(o.ButtonText),
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
