package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"giftstudio/internal/config"
	"giftstudio/internal/domain"
	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// requiredKeys must appear at the top level of an import document
var requiredKeys = []string{"id", "templateId", "data"}

// importValidator implements the ImportValidator interface
type importValidator struct {
	maxBytes int
}

// NewImportValidator creates the validator used by project import
func NewImportValidator() services.ImportValidator {
	return &importValidator{maxBytes: config.MaxImportBytes}
}

// ValidateImport checks raw export JSON. Dangling media references are not
// errors here: the repair pass fixes them when the project is activated.
func (v *importValidator) ValidateImport(raw []byte) services.ValidationResult {
	if len(raw) == 0 {
		return invalid("import data is empty")
	}
	if len(raw) > v.maxBytes {
		return invalid(fmt.Sprintf("import data exceeds %d bytes", v.maxBytes))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return invalid(fmt.Sprintf("invalid JSON: %v", err))
	}

	var msgs []string
	for _, key := range requiredKeys {
		if _, ok := top[key]; !ok {
			msgs = append(msgs, fmt.Sprintf("%s: is required", key))
		}
	}
	if len(msgs) > 0 {
		return invalid(msgs...)
	}

	var p models.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return invalid(fmt.Sprintf("invalid project structure: %v", err))
	}

	if err := validateProject(&p); err != nil {
		return invalid(flatten("", err)...)
	}

	return services.ValidationResult{IsValid: true, Project: &p}
}

func validateProject(p *models.Project) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required, validation.Length(1, config.MaxIDLength)),
		validation.Field(&p.Name, validation.Length(0, config.MaxProjectNameLength)),
		validation.Field(&p.TemplateID, validation.Required),
		validation.Field(&p.SchemaVersion,
			validation.Min(0),
			validation.Max(models.CurrentSchemaVersion).Error(
				fmt.Sprintf("is newer than the supported version %d", models.CurrentSchemaVersion)),
		),
		validation.Field(&p.Data, validation.By(validateData)),
	)
}

// ValidateProjectData applies the import rules for project data to an edit.
// Failures come back as a *domain.ValidationError with one message per field.
func ValidateProjectData(d models.ProjectData) error {
	if err := validateData(d); err != nil {
		return &domain.ValidationError{Messages: flatten("data", err)}
	}
	return nil
}

func validateData(value interface{}) error {
	d, ok := value.(models.ProjectData)
	if !ok {
		return errors.New("must be an object")
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.Screens, validation.Each(validation.By(validateScreen))),
		validation.Field(&d.Images, validation.Each(validation.By(validateMediaRef))),
		validation.Field(&d.Videos, validation.Each(validation.By(validateMediaRef))),
		validation.Field(&d.Overlay, validation.By(validateOverlay)),
	)
}

func validateScreen(value interface{}) error {
	s, ok := value.(models.ScreenData)
	if !ok {
		return errors.New("must be an object")
	}
	return validation.ValidateStruct(&s,
		validation.Field(&s.MediaMode, validation.In(models.MediaModeClassic, models.MediaModeVideo)),
		validation.Field(&s.VideoID, validation.NilOrNotEmpty),
		validation.Field(&s.Images, validation.Each(validation.By(validateMediaRef))),
		validation.Field(&s.AudioID, validation.NilOrNotEmpty),
	)
}

func validateMediaRef(value interface{}) error {
	ref, ok := value.(models.MediaRef)
	if !ok {
		return errors.New("must be an object")
	}
	return validation.ValidateStruct(&ref,
		validation.Field(&ref.ID, validation.Required, validation.Length(1, config.MaxIDLength)),
		validation.Field(&ref.Size, validation.Min(int64(0))),
	)
}

func validateOverlay(value interface{}) error {
	o, ok := value.(models.Overlay)
	if !ok {
		return errors.New("must be an object")
	}
	allowed := make([]interface{}, len(models.OverlayTypes))
	for i, t := range models.OverlayTypes {
		allowed[i] = t
	}
	return validation.ValidateStruct(&o,
		validation.Field(&o.Type, validation.In(allowed...)),
	)
}

// flatten turns nested ozzo errors into "data.screens.s1.mediaMode: must be a valid value"
func flatten(prefix string, err error) []string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		if prefix == "" {
			return []string{err.Error()}
		}
		return []string{fmt.Sprintf("%s: %s", prefix, err.Error())}
	}

	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		if errs[k] == nil {
			continue
		}
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		out = append(out, flatten(path, errs[k])...)
	}
	return out
}

func invalid(msgs ...string) services.ValidationResult {
	out := make([]services.ValidationMessage, len(msgs))
	for i, m := range msgs {
		out[i] = services.ValidationMessage{Message: m}
	}
	return services.ValidationResult{IsValid: false, Errors: out}
}
