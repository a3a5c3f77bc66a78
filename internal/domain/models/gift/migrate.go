package gift

import (
	"errors"
	"fmt"
)

// ErrUnsupportedSchema is returned for records written by a newer build
var ErrUnsupportedSchema = errors.New("unsupported schema version")

// migration upgrades a project from version From to From+1
type migration struct {
	From  int
	Apply func(p *Project)
}

var migrations = []migration{
	{From: 1, Apply: migrateV1ToV2},
	{From: 2, Apply: migrateV2ToV3},
}

// NeedsMigration reports whether p was written with an older schema
func NeedsMigration(p Project) bool {
	return p.SchemaVersion < CurrentSchemaVersion
}

// Migrate returns a copy of p upgraded to CurrentSchemaVersion.
// A missing version (0) is read as version 1.
func Migrate(p Project) (Project, error) {
	if p.SchemaVersion > CurrentSchemaVersion {
		return p, fmt.Errorf("project %s has schema version %d (max %d): %w",
			p.ID, p.SchemaVersion, CurrentSchemaVersion, ErrUnsupportedSchema)
	}
	if !NeedsMigration(p) {
		return p, nil
	}

	out := p.Clone()
	if out.SchemaVersion < 1 {
		out.SchemaVersion = 1
	}
	for _, m := range migrations {
		if out.SchemaVersion == m.From {
			m.Apply(&out)
			out.SchemaVersion = m.From + 1
		}
	}
	return out, nil
}

// v2 introduced the overlay block and the per-screen audio map
func migrateV1ToV2(p *Project) {
	if p.Data.Overlay.Type == "" {
		p.Data.Overlay.Type = OverlayHeart
	}
	if p.Data.Audio.Screens == nil {
		p.Data.Audio.Screens = map[string]MediaRef{}
	}
	if p.Data.Screens == nil {
		p.Data.Screens = map[string]ScreenData{}
	}
	if p.Data.Images == nil {
		p.Data.Images = []MediaRef{}
	}
	if p.Data.Videos == nil {
		p.Data.Videos = []MediaRef{}
	}
}

// v3 made mediaMode explicit; before it a screen was a video screen iff it had a videoId
func migrateV2ToV3(p *Project) {
	for id, screen := range p.Data.Screens {
		if screen.MediaMode != "" {
			continue
		}
		if screen.VideoID != nil {
			screen.MediaMode = MediaModeVideo
		} else {
			screen.MediaMode = MediaModeClassic
		}
		p.Data.Screens[id] = screen
	}
}
