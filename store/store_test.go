package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db, err := OpenFromConfig("", filepath.Join(t.TempDir(), "test.db"), "sqlite")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, opts...)
}

func fixedClock(ts time.Time) Option {
	return WithClock(func() time.Time { return ts })
}

func TestMigrate_SeedsDefaultSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all, err := s.AllSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(cms_fields.DefaultSettings))
	require.Equal(t, "10", all[cms_fields.SettingPostsPerPage])

	public, err := s.PublicSettings(ctx)
	require.NoError(t, err)
	require.NotContains(t, public, cms_fields.SettingContactEmail)
	require.Contains(t, public, cms_fields.SettingSiteTitle)

	// running again is a no-op
	require.NoError(t, Migrate(ctx, s.DB))
	v, err := MigrationVersion(ctx, s.DB)
	require.NoError(t, err)
	require.EqualValues(t, 2, v)
}

func TestOpenFromConfig_RejectsUnknownDriver(t *testing.T) {
	_, err := OpenFromConfig("", "x.db", "oracle")
	require.Error(t, err)

	_, err = OpenFromConfig("", "", "postgres")
	require.Error(t, err)
}

func TestUpsertSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertSettings(ctx, map[string]string{
		cms_fields.SettingSiteTitle: "Ann's corner",
		"footer_note":               "made by hand",
	})
	require.NoError(t, err)

	title, err := s.GetSetting(ctx, cms_fields.SettingSiteTitle)
	require.NoError(t, err)
	require.Equal(t, "Ann's corner", title)

	public, err := s.PublicSettings(ctx)
	require.NoError(t, err)
	require.NotContains(t, public, "footer_note")

	_, err = s.GetSetting(ctx, "missing")
	require.True(t, ErrNotFound(err))
}

func TestContacts(t *testing.T) {
	s := newTestStore(t, WithDataKey("k"))
	ctx := context.Background()

	c := &cms_fields.Contact{Name: "Ann", Email: " Ann@Example.com ", Message: "hello there friend"}
	require.NoError(t, s.CreateContact(ctx, c, "10.0.0.1"))
	require.NotZero(t, c.ID)
	require.Equal(t, cms_fields.ContactNew, c.Status)
	require.NotContains(t, c.IPHash, "10.0.0.1")

	for i := 0; i < 2; i++ {
		require.NoError(t, s.CreateContact(ctx, &cms_fields.Contact{Name: "Bob", Email: "b@example.com", Message: "another message"}, ""))
	}

	got, err := s.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", got.Email)

	require.NoError(t, s.MarkContactRead(ctx, c.ID))
	require.NoError(t, s.UpdateContactStatus(ctx, c.ID+1, cms_fields.ContactArchived))

	// a replied message is not pulled back to read
	require.NoError(t, s.UpdateContactStatus(ctx, c.ID+2, cms_fields.ContactReplied))
	require.NoError(t, s.MarkContactRead(ctx, c.ID+2))

	counts, err := s.CountContactsByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"new": 0, "read": 1, "replied": 1, "archived": 1}, counts)

	list, total, err := s.ListContacts(ctx, "", cms_fields.NewPagination(1, 2, 0))
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, list, 2)

	list, total, err = s.ListContacts(ctx, cms_fields.ContactRead, cms_fields.NewPagination(1, 20, 0))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, c.ID, list[0].ID)

	require.NoError(t, s.DeleteContact(ctx, c.ID))
	require.True(t, ErrNotFound(s.DeleteContact(ctx, c.ID)))
	_, err = s.GetContact(ctx, c.ID)
	require.True(t, ErrNotFound(err))
}

func TestPosts(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, fixedClock(now))
	ctx := context.Background()

	cat := &cms_fields.Category{Name: "Go Notes"}
	require.NoError(t, s.CreateCategory(ctx, cat))
	require.Equal(t, "go-notes", cat.Slug)

	first := &cms_fields.Post{Title: "Hello World", Content: "first post body", Status: cms_fields.PostPublished, Tags: cms_fields.StringList{"go", "web"}}
	first.CategoryID.Int64, first.CategoryID.Valid = cat.ID, true
	require.NoError(t, s.CreatePost(ctx, first))
	require.Equal(t, "hello-world", first.Slug)
	require.True(t, first.PublishedAt.Valid)

	second := &cms_fields.Post{Title: "Hello World", Content: "same title, draft"}
	require.NoError(t, s.CreatePost(ctx, second))
	require.Equal(t, "hello-world-2", second.Slug)

	third := &cms_fields.Post{Title: "Hello World", Content: "again", Status: cms_fields.PostPublished, Tags: cms_fields.StringList{"sql"}}
	require.NoError(t, s.CreatePost(ctx, third))
	require.Equal(t, "hello-world-3", third.Slug)

	public, total, err := s.ListPosts(ctx, PostFilter{PublishedOnly: true}, cms_fields.NewPagination(1, 10, 0))
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, public, 2)

	all, total, err := s.ListPosts(ctx, PostFilter{}, cms_fields.NewPagination(1, 10, 0))
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, all, 3)

	byTag, _, err := s.ListPosts(ctx, PostFilter{PublishedOnly: true, Tag: "GO"}, cms_fields.NewPagination(1, 10, 0))
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	require.Equal(t, first.ID, byTag[0].ID)
	require.NotNil(t, byTag[0].Category)
	require.Equal(t, "go-notes", byTag[0].Category.Slug)

	byCat, _, err := s.ListPosts(ctx, PostFilter{PublishedOnly: true, CategorySlug: "go-notes"}, cms_fields.NewPagination(1, 10, 0))
	require.NoError(t, err)
	require.Len(t, byCat, 1)

	byQuery, _, err := s.ListPosts(ctx, PostFilter{Query: "HELLO"}, cms_fields.NewPagination(1, 10, 0))
	require.NoError(t, err)
	require.Len(t, byQuery, 3)

	noWildcard, _, err := s.ListPosts(ctx, PostFilter{Query: "%"}, cms_fields.NewPagination(1, 10, 0))
	require.NoError(t, err)
	require.Len(t, noWildcard, 0)

	_, err = s.GetPublishedPost(ctx, second.Slug)
	require.True(t, ErrNotFound(err))

	got, err := s.GetPublishedPost(ctx, first.Slug)
	require.NoError(t, err)
	require.Equal(t, cms_fields.StringList{"go", "web"}, got.Tags)

	// updating to a taken slug is a conflict
	second.Slug = first.Slug
	err = s.UpdatePost(ctx, second)
	require.True(t, IsUniqueViolation(err), "got %v", err)

	published, err := s.SetPostStatus(ctx, second.ID, cms_fields.PostPublished)
	require.NoError(t, err)
	require.True(t, published.PublishedAt.Valid)

	counts, err := s.CountPostsByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, counts[cms_fields.PostPublished])

	// deleting the category keeps the post
	require.NoError(t, s.DeleteCategory(ctx, cat.ID))
	got, err = s.GetPost(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, got.CategoryID.Valid)
	require.Nil(t, got.Category)

	require.NoError(t, s.DeletePost(ctx, first.ID))
	_, err = s.GetPost(ctx, first.ID)
	require.True(t, ErrNotFound(err))
}

func TestPosts_ScheduledAreHidden(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, fixedClock(now))
	ctx := context.Background()

	p := &cms_fields.Post{Title: "Later", Content: "soon", Status: cms_fields.PostPublished}
	p.PublishedAt.Time, p.PublishedAt.Valid = now.Add(24*time.Hour), true
	require.NoError(t, s.CreatePost(ctx, p))

	_, err := s.GetPublishedPost(ctx, p.Slug)
	require.True(t, ErrNotFound(err))

	cats, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, cats, 0)
}

func TestCategories_PostCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &cms_fields.Category{Name: "Alpha"}
	b := &cms_fields.Category{Name: "Beta"}
	require.NoError(t, s.CreateCategory(ctx, a))
	require.NoError(t, s.CreateCategory(ctx, b))
	require.True(t, IsUniqueViolation(s.CreateCategory(ctx, &cms_fields.Category{Name: "alpha"})))

	for _, status := range []string{cms_fields.PostPublished, cms_fields.PostDraft} {
		p := &cms_fields.Post{Title: "In alpha " + status, Content: "x", Status: status}
		p.CategoryID.Int64, p.CategoryID.Valid = a.ID, true
		require.NoError(t, s.CreatePost(ctx, p))
	}

	public, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 2)
	require.Equal(t, "Alpha", public[0].Name)
	require.Equal(t, 1, public[0].PostCount)
	require.Equal(t, 0, public[1].PostCount)

	admin, err := s.ListCategories(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, admin[0].PostCount)

	b.Name = "Beta Renamed"
	b.Slug = ""
	require.NoError(t, s.UpdateCategory(ctx, b))
	got, err := s.GetCategoryBySlug(ctx, "beta-renamed")
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)
}

func TestProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(title string, featured, published bool, order int) *cms_fields.Project {
		p := &cms_fields.Project{Title: title, Featured: featured, Published: published, SortOrder: order, TechStack: cms_fields.StringList{"go"}}
		require.NoError(t, s.CreateProject(ctx, p))
		return p
	}
	a := mk("Alpha", false, true, 2)
	b := mk("Beta", true, true, 5)
	c := mk("Gamma", false, true, 1)
	d := mk("Hidden", true, false, 0)

	public, err := s.ListProjects(ctx, ProjectFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, c.ID, a.ID}, projectIDs(public))

	featured, err := s.ListProjects(ctx, ProjectFilter{PublishedOnly: true, FeaturedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, projectIDs(featured))

	_, err = s.GetProjectBySlug(ctx, d.Slug, true)
	require.True(t, ErrNotFound(err))
	got, err := s.GetProjectBySlug(ctx, d.Slug, false)
	require.NoError(t, err)
	require.Equal(t, cms_fields.StringList{"go"}, got.TechStack)

	require.NoError(t, s.ReorderProjects(ctx, []int64{a.ID, c.ID}))
	public, err = s.ListProjects(ctx, ProjectFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, a.ID, c.ID}, projectIDs(public))

	// an unknown id rolls the whole reorder back
	require.Error(t, s.ReorderProjects(ctx, []int64{c.ID, 9999}))
	got, err = s.GetProject(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.SortOrder)

	n, err := s.CountProjects(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	require.NoError(t, s.DeleteProject(ctx, d.ID))
	require.True(t, ErrNotFound(s.DeleteProject(ctx, d.ID)))
}

func projectIDs(ps []cms_fields.Project) []int64 {
	ids := make([]int64, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

func TestUsers(t *testing.T) {
	s := newTestStore(t, WithDataKey("secret-key"))
	ctx := context.Background()

	u := &cms_fields.User{Email: "Admin@Example.com", Name: "Admin", Role: cms_fields.RoleAdmin}
	require.NoError(t, u.HashPassword("Str0ng!pw"))
	require.NoError(t, s.CreateUser(ctx, u))
	require.Equal(t, "admin@example.com", u.Email)

	dup := &cms_fields.User{Email: "admin@example.com", Password: "x"}
	require.True(t, IsUniqueViolation(s.CreateUser(ctx, dup)))

	got, err := s.GetUserByEmail(ctx, " ADMIN@example.com")
	require.NoError(t, err)
	require.True(t, got.CheckPassword("Str0ng!pw"))
	require.False(t, got.LastLoginAt.Valid)

	require.NoError(t, s.SetTOTP(ctx, u.ID, "JBSWY3DPEHPK3PXP", true))
	var raw string
	require.NoError(t, s.DB.Get(&raw, "SELECT totp_secret FROM users WHERE id = ?", u.ID))
	require.NotEqual(t, "JBSWY3DPEHPK3PXP", raw)

	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.TOTPEnabled)
	require.Equal(t, "JBSWY3DPEHPK3PXP", got.TOTPSecret)

	require.NoError(t, s.TouchLogin(ctx, u.ID))
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.LastLoginAt.Valid)

	editor := &cms_fields.User{Email: "ed@example.com", Name: "Ed", Password: "x"}
	require.NoError(t, s.CreateUser(ctx, editor))
	require.Equal(t, cms_fields.RoleEditor, editor.Role)

	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	editor.Role = cms_fields.RoleAdmin
	require.NoError(t, s.UpdateUser(ctx, editor))
	n, err = s.CountAdmins(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Empty(t, users[0].TOTPSecret)

	require.NoError(t, s.UpdatePassword(ctx, editor.ID, "hashed"))
	require.NoError(t, s.DeleteUser(ctx, editor.ID))
	_, err = s.GetUserByID(ctx, editor.ID)
	require.True(t, ErrNotFound(err))
}

func TestViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{day.Add(-time.Minute), day, day.Add(23 * time.Hour), day.Add(24 * time.Hour)} {
		v := &cms_fields.PageView{Path: "/blog", VisitorHash: s.VisitorHash("1.1.1.1", "ua", at), CreatedAt: at}
		require.NoError(t, s.RecordView(ctx, v), "view %d", i)
	}

	views, err := s.ListViewsBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, views[0].VisitorHash, views[1].VisitorHash)

	n, err := s.CountViewsBetween(ctx, day.Add(-time.Hour), day.Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestHashing_NeverStoresRawValues(t *testing.T) {
	plain := newTestStore(t)
	keyed := newTestStore(t, WithDataKey("k"))
	day := time.Now()

	require.NotContains(t, plain.HashIP("1.2.3.4"), "1.2.3.4")
	require.NotEqual(t, plain.HashIP("1.2.3.4"), keyed.HashIP("1.2.3.4"))
	require.NotEqual(t, keyed.VisitorHash("1.2.3.4", "ua", day), keyed.VisitorHash("1.2.3.4", "ua", day.AddDate(0, 0, 1)))
}

func Test_resolveDriver(t *testing.T) {
	tests := []struct {
		name, url, path, override string
		driver, dsn               string
		wantErr                   bool
	}{
		{"sqlite default", "", "", "", DriverSQLite, "folio.db?" + sqliteParams, false},
		{"url wins", "postgres://db/folio", "x.db", "", DriverPostgres, "postgres://db/folio", false},
		{"forced sqlite", "postgres://db/folio", "x.db?mode=rwc", "SQLite", DriverSQLite, "x.db?mode=rwc&" + sqliteParams, false},
		{"postgres without url", "", "x.db", "pgx", "", "", true},
		{"unknown", "", "", "mysql", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := resolveDriver(tt.url, tt.path, tt.override)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.driver, driver)
			require.Equal(t, tt.dsn, dsn)
		})
	}
}

func Test_toSnake(t *testing.T) {
	require.Equal(t, "published_at", toSnake("PublishedAt"))
	require.Equal(t, "id", toSnake("ID"))
	require.Equal(t, "step2_done", toSnake("Step2Done"))
}

func TestGetUser_totpSealedWithAnotherKey(t *testing.T) {
	s := newTestStore(t, WithDataKey("key-a"))
	ctx := context.Background()
	u := &cms_fields.User{Email: "a@example.com", Name: "A", Password: "x", Role: cms_fields.RoleAdmin}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.SetTOTP(ctx, u.ID, "JBSWY3DPEHPK3PXP", true))

	rotated := New(s.DB, WithDataKey("key-b"))
	got, err := rotated.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, got.TOTPEnabled, "two-factor must stay on")
	require.Empty(t, got.TOTPSecret)
}

func TestUsers_lastAdminGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	add := func(email, role string) *cms_fields.User {
		u := &cms_fields.User{Email: email, Name: email, Password: "x", Role: role}
		require.NoError(t, s.CreateUser(ctx, u))
		return u
	}
	first := add("first@example.com", cms_fields.RoleAdmin)
	second := add("second@example.com", cms_fields.RoleAdmin)
	editor := add("editor@example.com", cms_fields.RoleEditor)

	require.NoError(t, s.DeleteUser(ctx, editor.ID))
	require.True(t, ErrNotFound(s.DeleteUser(ctx, editor.ID)))

	second.Role = cms_fields.RoleEditor
	require.NoError(t, s.UpdateUser(ctx, second))

	first.Role = cms_fields.RoleEditor
	require.ErrorIs(t, s.UpdateUser(ctx, first), ErrLastAdmin)
	require.ErrorIs(t, s.DeleteUser(ctx, first.ID), ErrLastAdmin)

	// renaming the last admin is fine
	first.Role, first.Name = cms_fields.RoleAdmin, "Renamed"
	require.NoError(t, s.UpdateUser(ctx, first))

	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestUsers_concurrentDemotionsKeepAnAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var admins []*cms_fields.User
	for _, email := range []string{"one@example.com", "two@example.com"} {
		u := &cms_fields.User{Email: email, Name: email, Password: "x", Role: cms_fields.RoleAdmin}
		require.NoError(t, s.CreateUser(ctx, u))
		admins = append(admins, u)
	}

	errs := make(chan error, len(admins))
	var wg sync.WaitGroup
	for _, u := range admins {
		wg.Add(1)
		go func(u cms_fields.User) {
			defer wg.Done()
			u.Role = cms_fields.RoleEditor
			errs <- s.UpdateUser(ctx, &u)
		}(*u)
	}
	wg.Wait()
	close(errs)

	var refused int
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrLastAdmin)
			refused++
		}
	}
	require.Equal(t, 1, refused)

	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCreatePost_concurrentSameTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const writers = 4

	slugs := make(chan string, writers)
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &cms_fields.Post{Title: "Kırmızı Başlık", Content: "body"}
			if err := s.CreatePost(ctx, p); err != nil {
				errs <- err
				return
			}
			slugs <- p.Slug
		}()
	}
	wg.Wait()
	close(slugs)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[string]bool{}
	for slug := range slugs {
		require.False(t, seen[slug], "duplicate slug %s", slug)
		seen[slug] = true
	}
	require.Len(t, seen, writers)
	require.True(t, seen["kirmizi-baslik"])
	require.True(t, seen["kirmizi-baslik-2"])
}

func TestRollupViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	for _, v := range []cms_fields.PageView{
		{Path: "/", Referrer: "", VisitorHash: "a", CreatedAt: d1},
		{Path: "/blog/go", Referrer: "https://t.co/x", VisitorHash: "a", CreatedAt: d1.Add(time.Hour)},
		{Path: "/blog/go", Referrer: "https://t.co/x", VisitorHash: "b", CreatedAt: d2},
		{Path: "/blog/go", Referrer: "", VisitorHash: "", CreatedAt: d2.Add(time.Hour)},
		{Path: "/late", CreatedAt: d2.AddDate(0, 0, 1)}, // outside the window
	} {
		v := v
		require.NoError(t, s.RecordView(ctx, &v))
	}

	rollup, err := s.RollupViews(ctx, d1.Truncate(24*time.Hour), d2.Truncate(24*time.Hour).AddDate(0, 0, 1), 1)
	require.NoError(t, err)
	require.Equal(t, []cms_fields.ViewDay{
		{Date: "2024-05-01", Views: 2, Visitors: 1},
		{Date: "2024-05-02", Views: 2, Visitors: 1},
	}, rollup.Days)
	require.Equal(t, 2, rollup.Visitors)
	require.Equal(t, []cms_fields.ViewCount{{Label: "/blog/go", Count: 3}}, rollup.Pages)
	require.ElementsMatch(t, []cms_fields.ViewCount{{Label: "", Count: 2}, {Label: "https://t.co/x", Count: 2}}, rollup.Referrers)

	empty, err := s.RollupViews(ctx, d1.AddDate(1, 0, 0), d1.AddDate(1, 0, 1), 10)
	require.NoError(t, err)
	require.Empty(t, empty.Days)
	require.Zero(t, empty.Visitors)
}
