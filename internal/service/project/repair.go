package project

import (
	models "giftstudio/internal/domain/models/gift"
)

// Repair restores media-mode consistency on every screen of p and returns the
// repaired copy; p itself is left untouched. It runs whenever a project is
// activated.
//
// Per screen:
//   - a video screen whose videoId does not resolve in data.videos is forced to
//     classic and loses its videoId and its images
//   - a video screen drops audioId, extendMusicToNext and galleryLayout
//   - a classic screen drops videoId and keeps its images
//
// A missing or unknown mediaMode reads as classic.
func Repair(p models.Project) models.Project {
	out := p.Clone()
	for id, screen := range out.Data.Screens {
		out.Data.Screens[id] = repairScreen(screen, &out)
	}
	return out
}

func repairScreen(screen models.ScreenData, p *models.Project) models.ScreenData {
	hasValidVideo := screen.VideoID != nil && p.HasVideo(*screen.VideoID)

	mode := models.MediaModeClassic
	if screen.MediaMode == models.MediaModeVideo {
		mode = models.MediaModeVideo
	}

	// Only a forced downgrade clears images; already-classic screens keep theirs.
	if mode == models.MediaModeVideo && !hasValidVideo {
		mode = models.MediaModeClassic
		screen.VideoID = nil
		screen.Images = []models.MediaRef{}
	}
	screen.MediaMode = mode

	switch mode {
	case models.MediaModeVideo:
		screen.AudioID = nil
		screen.ExtendMusicToNext = nil
		screen.GalleryLayout = nil
	case models.MediaModeClassic:
		screen.VideoID = nil
	}

	return screen
}
