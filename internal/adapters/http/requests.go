package httpadapter

import (
	"github.com/go-playground/validator/v10"

	"github.com/citetrace/citetrace/internal/core/ports"
)

var validate = validator.New()

type fieldRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description,omitempty" validate:"max=1024"`
	Schema      string `json:"schema,omitempty"`
}

type extractRequest struct {
	Fields []fieldRequest `json:"fields" validate:"required,min=1,max=64,dive"`
}

func (r *extractRequest) Validate() error {
	return validate.Struct(r)
}

func (r *extractRequest) fieldSpecs() []ports.FieldSpec {
	specs := make([]ports.FieldSpec, 0, len(r.Fields))
	for _, f := range r.Fields {
		specs = append(specs, ports.FieldSpec{
			Name:        f.Name,
			Description: f.Description,
			Schema:      f.Schema,
		})
	}
	return specs
}

type validateRequest struct {
	ExtractionIDs []string `json:"extraction_ids" validate:"required,min=1,max=256,dive,required"`
}

func (r *validateRequest) Validate() error {
	return validate.Struct(r)
}
