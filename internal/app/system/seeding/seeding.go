// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	criteriastore "github.com/dalemusser/strataportal/internal/app/store/criteria"
	examstore "github.com/dalemusser/strataportal/internal/app/store/examinations"
	institutionstore "github.com/dalemusser/strataportal/internal/app/store/institutions"
	manualstore "github.com/dalemusser/strataportal/internal/app/store/manuals"
	obestore "github.com/dalemusser/strataportal/internal/app/store/obe"
	schedulestore "github.com/dalemusser/strataportal/internal/app/store/schedules"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	userstore "github.com/dalemusser/strataportal/internal/app/store/users"
	"github.com/dalemusser/strataportal/internal/app/system/authutil"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Config selects what SeedAll creates.
type Config struct {
	AdminLoginID  string // blank skips the admin
	AdminName     string
	AdminPassword string // blank creates a trust-login admin
	Demo          bool   // load demo.yaml into an empty database
}

// SeedAll seeds the admin account and, when enabled, the demo records.
// Both steps skip work that has already been done.
func SeedAll(ctx context.Context, db *mongo.Database, cfg Config, logger *zap.Logger) error {
	if err := seedAdmin(ctx, db, cfg, logger); err != nil {
		return err
	}
	if cfg.Demo {
		if err := seedDemo(ctx, db, demoYAML, logger); err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, db *mongo.Database, cfg Config, logger *zap.Logger) error {
	if cfg.AdminLoginID == "" {
		return nil
	}
	users := userstore.New(db)

	_, err := users.GetByLoginID(ctx, cfg.AdminLoginID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storeutil.ErrNotFound) {
		return fmt.Errorf("seed admin lookup: %w", err)
	}

	in := userstore.CreateInput{
		FullName:   cfg.AdminName,
		LoginID:    cfg.AdminLoginID,
		AuthMethod: models.AuthTrust,
		Role:       models.RoleAdmin,
	}
	if in.FullName == "" {
		in.FullName = "Administrator"
	}
	if cfg.AdminPassword != "" {
		hash, err := authutil.HashPassword(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin password: %w", err)
		}
		in.AuthMethod = models.AuthPassword
		in.PasswordHash = &hash
	}

	u, err := users.Create(ctx, in)
	if errors.Is(err, userstore.ErrDuplicateLoginID) {
		return nil // another instance won the race
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("seeded admin user",
		zap.String("login_id", u.LoginID),
		zap.String("auth_method", u.AuthMethod))
	return nil
}

// demoData mirrors demo.yaml.
type demoData struct {
	Institutions []struct {
		Code        string `yaml:"code"`
		Name        string `yaml:"name"`
		Category    string `yaml:"category"`
		Affiliation string `yaml:"affiliation"`
		City        string `yaml:"city"`
		Established int    `yaml:"established"`
	} `yaml:"institutions"`

	Manuals []struct {
		ManualID string `yaml:"manual_id"`
		Title    string `yaml:"title"`
		Agency   string `yaml:"agency"`
		Version  string `yaml:"version"`
		Category string `yaml:"category"`
		Year     int    `yaml:"year"`
		Criteria []struct {
			Number    string  `yaml:"number"`
			Title     string  `yaml:"title"`
			Weightage float64 `yaml:"weightage"`
			Metrics   []struct {
				Number      string  `yaml:"number"`
				Description string  `yaml:"description"`
				Type        string  `yaml:"type"`
				MaxMarks    float64 `yaml:"max_marks"`
			} `yaml:"metrics"`
		} `yaml:"criteria"`
	} `yaml:"manuals"`

	Examinations []struct {
		Code     string `yaml:"code"`
		Course   string `yaml:"course"`
		Semester int    `yaml:"semester"`
		Type     string `yaml:"type"`
		Date     string `yaml:"date"`
	} `yaml:"examinations"`

	Schedule []schedulestore.Input `yaml:"schedule"`

	OBE []struct {
		Program         string               `yaml:"program"`
		ProgramOutcomes []models.Outcome     `yaml:"program_outcomes"`
		CourseOutcomes  []models.Outcome     `yaml:"course_outcomes"`
		Mappings        []models.COPOMapping `yaml:"mappings"`
	} `yaml:"obe"`
}

// seedDemo loads doc when the institutions collection is empty.
func seedDemo(ctx context.Context, db *mongo.Database, doc []byte, logger *zap.Logger) error {
	insts := institutionstore.New(db)
	n, err := insts.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if n > 0 {
		return nil
	}

	var data demoData
	if err := yaml.Unmarshal(doc, &data); err != nil {
		return fmt.Errorf("seed demo: decode: %w", err)
	}

	for _, in := range data.Institutions {
		if _, err := insts.Create(ctx, institutionstore.Input{
			Code:        in.Code,
			Name:        in.Name,
			Category:    in.Category,
			Affiliation: in.Affiliation,
			City:        in.City,
			Established: in.Established,
		}); err != nil {
			return fmt.Errorf("seed institution %s: %w", in.Code, err)
		}
	}

	manuals := manualstore.New(db)
	crit := criteriastore.New(db)
	for _, m := range data.Manuals {
		created, err := manuals.Create(ctx, manualstore.Input{
			ManualID:            m.ManualID,
			Title:               m.Title,
			Agency:              m.Agency,
			Version:             m.Version,
			InstitutionCategory: m.Category,
			Year:                m.Year,
		})
		if err != nil {
			return fmt.Errorf("seed manual %s: %w", m.ManualID, err)
		}
		for _, c := range m.Criteria {
			cr, err := crit.CreateCriterion(ctx, criteriastore.CriterionInput{
				ManualID:  created.ID,
				Number:    c.Number,
				Title:     c.Title,
				Weightage: c.Weightage,
			})
			if err != nil {
				return fmt.Errorf("seed criterion %s/%s: %w", m.ManualID, c.Number, err)
			}
			for _, mt := range c.Metrics {
				if _, err := crit.CreateMetric(ctx, criteriastore.MetricInput{
					CriterionID: cr.ID,
					Number:      mt.Number,
					Description: mt.Description,
					Type:        mt.Type,
					MaxMarks:    mt.MaxMarks,
				}); err != nil {
					return fmt.Errorf("seed metric %s: %w", mt.Number, err)
				}
			}
		}
	}

	exams := examstore.New(db)
	for _, e := range data.Examinations {
		date, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return fmt.Errorf("seed examination %s: %w", e.Code, err)
		}
		if _, err := exams.Create(ctx, examstore.Input{
			Code:     e.Code,
			Course:   e.Course,
			Semester: e.Semester,
			Type:     e.Type,
			Date:     date,
		}); err != nil {
			return fmt.Errorf("seed examination %s: %w", e.Code, err)
		}
	}

	slots := schedulestore.New(db)
	for _, in := range data.Schedule {
		if _, err := slots.Create(ctx, in); err != nil {
			return fmt.Errorf("seed slot %s %s %s: %w", in.Day, in.Start, in.Room, err)
		}
	}

	obe := obestore.New(db)
	for _, p := range data.OBE {
		sections := []struct {
			name  string
			value any
		}{
			{obestore.SectionProgramOutcomes, p.ProgramOutcomes},
			{obestore.SectionCourseOutcomes, p.CourseOutcomes},
			{obestore.SectionMappings, p.Mappings},
		}
		for _, s := range sections {
			if err := obe.SaveSection(ctx, p.Program, s.name, s.value); err != nil {
				return fmt.Errorf("seed obe %s/%s: %w", p.Program, s.name, err)
			}
		}
	}

	logger.Info("seeded demo data",
		zap.Int("institutions", len(data.Institutions)),
		zap.Int("manuals", len(data.Manuals)),
		zap.Int("examinations", len(data.Examinations)),
		zap.Int("schedule_slots", len(data.Schedule)),
		zap.Int("obe_programs", len(data.OBE)))
	return nil
}
