package repositories

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory SQLite database and applies the migration
// scripts in order.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".sql" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		require.NoError(t, err)
		_, err = db.Exec(string(content))
		require.NoError(t, err, name)
	}

	return db
}

func testDeveloper(username string, score float64) *models.Developer {
	return &models.Developer{
		Username:         username,
		ProfileType:      models.ProfileTypeDeveloper,
		FinalImpactScore: score,
	}
}

func strPointer(s string) *string {
	return &s
}

func TestUpsertRoundTrip(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	dev := testDeveloper("octocat", 42.5)
	dev.DisplayName = strPointer("The Octocat")
	dev.Country = strPointer("India")
	dev.City = strPointer("Pune")
	dev.TopLanguages = []string{"Go", "Python"}
	dev.TopRepositories = []string{"octocat/hello-world"}

	require.NoError(t, repo.Upsert(dev))

	got, err := repo.GetByUsername("octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", got.Username)
	assert.Equal(t, "The Octocat", *got.DisplayName)
	assert.Equal(t, "India", *got.Country)
	assert.Equal(t, "Pune", *got.City)
	assert.Equal(t, 42.5, got.FinalImpactScore)
	assert.Equal(t, []string{"Go", "Python"}, got.TopLanguages)
	assert.Equal(t, []string{"octocat/hello-world"}, got.TopRepositories)
}

func TestUpsertOverwritesExisting(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	first := testDeveloper("octocat", 10)
	first.Followers = 5
	require.NoError(t, repo.Upsert(first))

	second := testDeveloper("octocat", 80)
	second.Followers = 500
	require.NoError(t, repo.Upsert(second))

	got, err := repo.GetByUsername("octocat")
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.FinalImpactScore)
	assert.Equal(t, 500, got.Followers)

	// Identity and creation time survive the overwrite.
	assert.Equal(t, first.ID, got.ID)

	var count int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM developers`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertConcurrentSameUsername(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			assert.NoError(t, repo.Upsert(testDeveloper("octocat", score)))
		}(float64(i * 10))
	}
	wg.Wait()

	var count int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM developers`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetByUsernameAbsent(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	_, err := repo.GetByUsername("ghost")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestGetRankedOrderingAndPaging(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(testDeveloper("low", 10)))
	require.NoError(t, repo.Upsert(testDeveloper("high", 90)))
	require.NoError(t, repo.Upsert(testDeveloper("mid", 50)))

	developers, total, maxScore, err := repo.GetRanked(2, 0, models.RankingFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 90.0, maxScore)
	require.Len(t, developers, 2)
	assert.Equal(t, "high", developers[0].Username)
	assert.Equal(t, "mid", developers[1].Username)

	developers, _, _, err = repo.GetRanked(2, 2, models.RankingFilters{})
	require.NoError(t, err)
	require.Len(t, developers, 1)
	assert.Equal(t, "low", developers[0].Username)
}

func TestCompanyFilterOverridesLocation(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	atGoogleInIndia := testDeveloper("india-googler", 50)
	atGoogleInIndia.Company = strPointer("Google")
	atGoogleInIndia.Country = strPointer("India")
	require.NoError(t, repo.Upsert(atGoogleInIndia))

	atGoogleInUS := testDeveloper("us-googler", 60)
	atGoogleInUS.Company = strPointer("Google")
	atGoogleInUS.Country = strPointer("United States")
	require.NoError(t, repo.Upsert(atGoogleInUS))

	inIndiaOnly := testDeveloper("independent", 70)
	inIndiaOnly.Country = strPointer("India")
	require.NoError(t, repo.Upsert(inIndiaOnly))

	// Company set: country is ignored, both Googlers match.
	developers, total, _, err := repo.GetRanked(10, 0, models.RankingFilters{
		Company: "google",
		Country: "India",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, developers, 2)
	assert.Equal(t, "us-googler", developers[0].Username)

	// The AllCompanies sentinel means no company filter at all.
	_, total, _, err = repo.GetRanked(10, 0, models.RankingFilters{
		Company: models.AllCompanies,
		Country: "India",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestGetRankTiesShareRank(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(testDeveloper("top", 90)))
	require.NoError(t, repo.Upsert(testDeveloper("tied-a", 50)))
	require.NoError(t, repo.Upsert(testDeveloper("tied-b", 50)))

	rank, total, _, err := repo.GetRank("top", models.RankingFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
	assert.Equal(t, 3, total)

	rankA, _, _, err := repo.GetRank("tied-a", models.RankingFilters{})
	require.NoError(t, err)
	rankB, _, _, err := repo.GetRank("tied-b", models.RankingFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, rankA)
	assert.Equal(t, 2, rankB)
}

func TestSearchMatchesUsernameAndDisplayName(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	named := testDeveloper("someuser", 30)
	named.DisplayName = strPointer("Grace Hopper")
	require.NoError(t, repo.Upsert(named))
	require.NoError(t, repo.Upsert(testDeveloper("gracekelly", 20)))
	require.NoError(t, repo.Upsert(testDeveloper("unrelated", 10)))

	results, err := repo.Search("GRACE", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "someuser", results[0].Username)
	assert.Equal(t, "gracekelly", results[1].Username)
}

func TestDistinctAttributeListings(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	a := testDeveloper("a", 10)
	a.Company = strPointer("Google")
	a.Country = strPointer("India")
	a.City = strPointer("Pune")
	require.NoError(t, repo.Upsert(a))

	b := testDeveloper("b", 20)
	b.Company = strPointer("Stripe")
	b.Country = strPointer("United States")
	b.City = strPointer("San Francisco")
	require.NoError(t, repo.Upsert(b))

	c := testDeveloper("c", 30)
	c.Country = strPointer("India")
	c.City = strPointer("Bangalore")
	require.NoError(t, repo.Upsert(c))

	companies, err := repo.DistinctCompanies()
	require.NoError(t, err)
	assert.Equal(t, []string{"Google", "Stripe"}, companies)

	countries, err := repo.DistinctCountries()
	require.NoError(t, err)
	assert.Equal(t, []string{"India", "United States"}, countries)

	cities, err := repo.DistinctCities("India")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bangalore", "Pune"}, cities)

	types, err := repo.DistinctProfileTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{models.ProfileTypeDeveloper}, types)
}

func TestCountByFilters(t *testing.T) {
	repo := NewDeveloperRepository(newTestDB(t))

	a := testDeveloper("a", 10)
	a.Company = strPointer("Google")
	require.NoError(t, repo.Upsert(a))

	b := testDeveloper("b", 20)
	b.Country = strPointer("India")
	b.City = strPointer("Pune")
	require.NoError(t, repo.Upsert(b))

	count, err := repo.CountByFilters("Google", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountByFilters("", "India", "Pune")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountByFilters("", "India", "Bangalore")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
