package web

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLoadTemplates(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	for _, page := range []string{"index.html", "organization.html", "profile.html", "about.html", "login.html"} {
		assert.True(t, tmpl.Has(page), page)
	}
}

func TestRender_PagesKeepTheirOwnBlocks(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	var about, login bytes.Buffer
	require.NoError(t, tmpl.Render(&about, "about.html", PageData{}))
	require.NoError(t, tmpl.Render(&login, "login.html", PageData{Providers: []string{"github"}, Redirect: "/"}))

	assert.Contains(t, about.String(), "<title>About | ClubHub</title>")
	assert.NotContains(t, about.String(), "Continue with")
	assert.Contains(t, login.String(), "<title>Sign in | ClubHub</title>")
	assert.Contains(t, login.String(), "Continue with github")
}

func TestRender_Index(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	long := "A weekly meetup for people who like to talk about chess openings, endgames and everything in between, with casual games, puzzles and the occasional simul against visiting players."
	data := PageData{
		Query: "<chess>",
		Organizations: []dto.OrganizationDTO{{
			ID:          uuid.NewString(),
			Name:        "Chess Club",
			Description: strPtr(long),
			Category:    strPtr("Games"),
			CreatedAt:   time.Now(),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.Render(&buf, "index.html", data))
	out := buf.String()

	assert.Contains(t, out, "Chess Club")
	assert.Contains(t, out, "Games")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "&lt;chess&gt;")
	assert.Contains(t, out, "Sign in")
}

func TestRender_OrganizationForMember(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	orgID := uuid.NewString()
	data := PageData{
		Session:   &auth.SessionView{UserID: uuid.New(), Name: "Ada"},
		CSRFToken: "csrf-value",
		Organization: &dto.OrganizationDTO{
			ID:      orgID,
			Name:    "Robotics",
			Members: []dto.MemberDTO{{Name: "Ada", Role: "president"}},
		},
		IsMember: true,
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.Render(&buf, "organization.html", data))
	out := buf.String()

	assert.Contains(t, out, "/api/v1/organizations/"+orgID+"/members/me")
	assert.Contains(t, out, "Leave")
	assert.Contains(t, out, "president")
	assert.Contains(t, out, `content="csrf-value"`)
	assert.Contains(t, out, "Sign out")
}

func TestRender_UnknownPage(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	err = tmpl.Render(&bytes.Buffer{}, "missing.html", nil)
	assert.Error(t, err)
}

func TestGetStaticFS(t *testing.T) {
	static, err := GetStaticFS()
	require.NoError(t, err)

	f, err := static.Open("css/style.css")
	require.NoError(t, err)
	f.Close()
}
