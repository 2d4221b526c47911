//go:build ignore

package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hugh/clubhub/internal/api/validation"
	"github.com/hugh/clubhub/internal/database"
	"github.com/hugh/clubhub/internal/database/models"
	"github.com/hugh/clubhub/pkg/config"
	"github.com/hugh/clubhub/pkg/util"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type seedCollege struct {
	name    string
	domains []string
}

type seedOrganization struct {
	name        string
	description string
	category    string
	college     string
}

var colleges = []seedCollege{
	{name: "Example University", domains: []string{"example.edu", "alumni.example.edu"}},
	{name: "Riverside College", domains: []string{"riverside.edu"}},
}

var organizations = []seedOrganization{
	{"Chess Club", "Weekly casual games, puzzles and an annual tournament.", "Games", "Example University"},
	{"Robotics Society", "Design, build and compete with autonomous robots.", "Engineering", "Example University"},
	{"Campus Choir", "Open rehearsals every Thursday evening.", "Music", "Example University"},
	{"Debate Union", "Parliamentary debate practice and competitions.", "Academic", "Riverside College"},
	{"Outdoor Club", "Hiking, climbing and weekend trips.", "Sports", "Riverside College"},
	{"100% Volunteers", "Community service projects around town.", "Service", ""},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	byName := make(map[string]*models.College)
	for _, c := range colleges {
		college, err := ensureCollege(db, c)
		if err != nil {
			log.Fatalf("failed to seed college %s: %v", c.name, err)
		}
		byName[c.name] = college
	}

	// Stagger creation times so the directory has a stable newest-first order.
	created := time.Now().Add(-time.Duration(len(organizations)) * time.Hour)
	for _, o := range organizations {
		created = created.Add(time.Hour)

		var existing models.Organization
		err := db.Where("name = ?", o.name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("failed to look up organization %s: %v", o.name, err)
		}

		org := models.Organization{
			Base:        models.Base{CreatedAt: created},
			Name:        o.name,
			Description: &o.description,
			Category:    &o.category,
		}
		if c, ok := byName[o.college]; ok {
			org.CollegeID = &c.ID
		}
		if err := db.Create(&org).Error; err != nil {
			log.Fatalf("failed to seed organization %s: %v", o.name, err)
		}
	}

	logger.Info("seed complete", "colleges", len(colleges), "organizations", len(organizations))
}

func ensureCollege(db *gorm.DB, c seedCollege) (*models.College, error) {
	var college models.College
	err := db.Preload("Domains").Where("name = ?", c.name).First(&college).Error
	if err == nil {
		return &college, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	college = models.College{Name: c.name}
	for _, d := range c.domains {
		if !validation.IsValidDomain(d) {
			return nil, fmt.Errorf("college %s: invalid domain %q", c.name, d)
		}
		college.Domains = append(college.Domains, models.CollegeDomain{Domain: d})
	}
	return &college, db.Create(&college).Error
}
