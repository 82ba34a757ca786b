// Package transform constructs SQL transformation configuration payloads for
// the active dialect and submits them for creation.
package transform

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/storage"
	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

const (
	snowflakeTransformationID = "keboola.snowflake-transformation"
	bigqueryTransformationID  = "keboola.google-bigquery-transformation"
)

// ComponentID returns the transformation component id for a dialect.
func ComponentID(kind models.BackendKind) (string, error) {
	switch kind {
	case models.BackendSnowflake:
		return snowflakeTransformationID, nil
	case models.BackendBigQuery:
		return bigqueryTransformationID, nil
	default:
		return "", toolerr.New(toolerr.InvalidSpec, "no transformation component for backend kind %q", kind)
	}
}

// createTableRe matches the table identifier produced by a CREATE TABLE
// statement, quoted in either dialect or bare, with optional schema
// qualifiers; only the last path segment names the table.
var createTableRe = regexp.MustCompile(
	`(?i)create\s+(?:or\s+replace\s+)?(?:temporary\s+|temp\s+)?table\s+(?:if\s+not\s+exists\s+)?` +
		`(?:(?:"[^"]+"|` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_$]*)\.)*` +
		`(?:"([^"]+)"|` + "`([^`]+)`" + `|([A-Za-z_][A-Za-z0-9_$]*))`)

// Markers of dialect-specific SQL extensions. This is a keyword check, not a
// parser: it exists to fail a mismatched spec before submission, not to
// validate the SQL.
var (
	snowflakeOnlyMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\blateral\s+flatten\b`),
		regexp.MustCompile(`(?i)\bvariant\b`),
		regexp.MustCompile(`(?i)\bilike\b`),
		regexp.MustCompile(`(?i)\bminus\b`),
		regexp.MustCompile(`(?i)\basof\s+join\b`),
		regexp.MustCompile(`(?i)\bsample\s*\(`),
	}
	bigqueryOnlyMarkers = []*regexp.Regexp{
		regexp.MustCompile("`"),
		regexp.MustCompile(`(?i)\bexcept\s+distinct\b`),
		regexp.MustCompile(`(?i)\bsafe_cast\b`),
		regexp.MustCompile(`(?i)\bstruct<`),
		regexp.MustCompile(`(?i)\barray<`),
	}
)

// ConfigCreator is the single storage call Submit needs. *storage.Client
// satisfies it.
type ConfigCreator interface {
	CreateConfiguration(ctx context.Context, componentID string, req storage.ConfigurationCreate) (*models.Configuration, error)
}

// Builder builds and submits transformation specs for one dialect.
type Builder struct {
	kind    models.BackendKind
	storage ConfigCreator
	log     *logging.Logger
}

// NewBuilder creates a Builder bound to the active dialect.
func NewBuilder(kind models.BackendKind, storage ConfigCreator, log *logging.Logger) *Builder {
	return &Builder{kind: kind, storage: storage, log: log}
}

// Build validates the inputs and constructs the transformation payload in
// memory. It fails with InvalidSpec when an output table is not produced by
// the statements or when a statement uses syntax foreign to the active
// dialect. No remote call is made.
func (b *Builder) Build(name, description string, statements, createdTables []string) (*models.TransformationSpec, error) {
	if strings.TrimSpace(name) == "" {
		return nil, toolerr.New(toolerr.InvalidSpec, "transformation name must not be empty")
	}
	if len(statements) == 0 {
		return nil, toolerr.New(toolerr.InvalidSpec, "transformation must contain at least one SQL statement")
	}

	if err := b.checkDialectSyntax(statements); err != nil {
		return nil, err
	}

	produced := producedTables(statements)
	for _, table := range createdTables {
		if !produced[strings.ToLower(table)] {
			return nil, toolerr.New(toolerr.InvalidSpec,
				"output table %q is not created by any of the SQL statements", table)
		}
	}

	componentID, err := ComponentID(b.kind)
	if err != nil {
		return nil, err
	}

	outputs := make([]models.TableMapping, len(createdTables))
	bucket := bucketSlug(name)
	for i, table := range createdTables {
		outputs[i] = models.TableMapping{
			Source:      table,
			Destination: fmt.Sprintf("out.c-%s.%s", bucket, table),
		}
	}

	return &models.TransformationSpec{
		Name:        name,
		Description: description,
		Dialect:     b.kind,
		ComponentID: componentID,
		Configuration: models.TransformationConfig{
			Parameters: models.TransformationParameters{
				Blocks: []models.TransformationBlock{{
					Name: "Blocks",
					Codes: []models.TransformationCode{{
						Name:   name,
						Script: statements,
					}},
				}},
			},
			Storage: models.TransformationStorage{
				Input:  models.TransformationTables{Tables: []models.TableMapping{}},
				Output: models.TransformationTables{Tables: outputs},
			},
		},
	}, nil
}

// Submit creates the transformation configuration remotely. A single create
// call; re-submission creates a new configuration.
func (b *Builder) Submit(ctx context.Context, spec *models.TransformationSpec) (*models.Configuration, error) {
	cfg, err := b.storage.CreateConfiguration(ctx, spec.ComponentID, storage.ConfigurationCreate{
		Name:          spec.Name,
		Description:   spec.Description,
		Configuration: spec.Configuration,
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("created transformation", "component", spec.ComponentID, "configuration", cfg.ID)
	return cfg, nil
}

func (b *Builder) checkDialectSyntax(statements []string) error {
	var markers []*regexp.Regexp
	var foreign models.BackendKind
	switch b.kind {
	case models.BackendBigQuery:
		markers, foreign = snowflakeOnlyMarkers, models.BackendSnowflake
	case models.BackendSnowflake:
		markers, foreign = bigqueryOnlyMarkers, models.BackendBigQuery
	default:
		return nil
	}
	for i, stmt := range statements {
		for _, re := range markers {
			if loc := re.FindString(stmt); loc != "" {
				return toolerr.New(toolerr.InvalidSpec,
					"statement %d uses %s-only syntax %q, which the %s dialect does not support",
					i+1, foreign, strings.TrimSpace(loc), b.kind)
			}
		}
	}
	return nil
}

// producedTables collects the lowercased identifiers of tables created by
// the statements.
func producedTables(statements []string) map[string]bool {
	produced := make(map[string]bool)
	for _, stmt := range statements {
		for _, match := range createTableRe.FindAllStringSubmatch(stmt, -1) {
			for _, group := range match[1:] {
				if group == "" {
					continue
				}
				name := strings.ToLower(group)
				produced[name] = true
				// A backticked path carries its qualifiers inside the quotes;
				// the table is the last segment.
				if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
					produced[name[idx+1:]] = true
				}
			}
		}
	}
	return produced
}

var bucketSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// bucketSlug derives the output bucket name from the transformation name.
func bucketSlug(name string) string {
	slug := bucketSlugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
