package repository

import (
	"context"
	"fmt"
	"testing"

	"rau/internal/database"
	"rau/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a constructor per storage variant; every call yields fresh state.
func backends() map[string]func(t *testing.T) *Stores {
	return map[string]func(t *testing.T) *Stores{
		"memory": func(t *testing.T) *Stores {
			return NewMemoryStores()
		},
		"sqlite": func(t *testing.T) *Stores {
			db, err := database.OpenSQLite(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = database.Close(db) })
			require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
			return NewGormStores(db)
		},
	}
}

// forEachBackend runs fn once per storage variant.
func forEachBackend(t *testing.T, fn func(t *testing.T, s *Stores)) {
	t.Helper()
	for name, open := range backends() {
		open := open
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func mustUser(t *testing.T, s *Stores, email string) *models.User {
	t.Helper()
	local := email
	for i, r := range email {
		if r == '@' {
			local = email[:i]
			break
		}
	}
	u, err := s.Users.Create(context.Background(), &models.User{Name: local, Username: local, Email: email}, "secret123")
	require.NoError(t, err)
	return u
}

func mustCommunity(t *testing.T, s *Stores, name string) *models.Community {
	t.Helper()
	c, err := s.Communities.Create(context.Background(), name, nil)
	require.NoError(t, err)
	return c
}

func mustPost(t *testing.T, s *Stores, communityID, authorID uint, title, content string) *models.Post {
	t.Helper()
	p := &models.Post{CommunityID: communityID, AuthorID: authorID, Title: title, Content: content}
	require.NoError(t, s.Posts.Create(context.Background(), p))
	return p
}

func mustComment(t *testing.T, s *Stores, postID, authorID uint, parentID *uint, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, AuthorID: authorID, ParentID: parentID, Content: content}
	require.NoError(t, s.Comments.Create(context.Background(), c))
	return c
}

func TestContract_Users(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()

		created, err := s.Users.Create(ctx, &models.User{Name: "Ana", Username: "ana", Email: "Ana@Example.com", Role: models.RoleInstructor}, "secret123")
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Empty(t, created.PasswordHash)
		assert.Equal(t, "ana@example.com", created.Email)
		assert.Equal(t, models.RoleInstructor, created.Role)

		_, err = s.Users.Create(ctx, &models.User{Name: "Other", Username: "other", Email: "ANA@example.com"}, "secret123")
		assert.True(t, models.IsCode(err, models.CodeConflict), "duplicate email must conflict, got %v", err)

		byEmail, err := s.Users.GetByEmail(ctx, "ana@EXAMPLE.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, created.ID, byEmail.ID)

		byUsername, err := s.Users.GetByUsername(ctx, "ana")
		require.NoError(t, err)
		require.NotNil(t, byUsername)

		missing, err := s.Users.GetByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)

		ok, err := s.Users.VerifyCredentials(ctx, "ana@example.com", "secret123")
		require.NoError(t, err)
		require.NotNil(t, ok)
		assert.Empty(t, ok.PasswordHash)

		bad, err := s.Users.VerifyCredentials(ctx, "ana@example.com", "wrong-password")
		require.NoError(t, err)
		assert.Nil(t, bad)

		unknown, err := s.Users.VerifyCredentials(ctx, "ghost@example.com", "secret123")
		require.NoError(t, err)
		assert.Nil(t, unknown)

		view, err := s.Users.PublicView(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, view)
		assert.Empty(t, view.PasswordHash)

		absent, err := s.Users.PublicView(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, absent)

		other := mustUser(t, s, "bruno@example.com")
		views, err := s.Users.PublicViews(ctx, []uint{created.ID, other.ID, 9999})
		require.NoError(t, err)
		assert.Len(t, views, 2)
		assert.Equal(t, "bruno", views[other.ID].Username)
	})
}

func TestContract_UserUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "carla@example.com")

		bio := "Física, 3º año"
		name := "Carla M."
		updated, err := s.Users.Update(ctx, u.ID, models.UserPatch{Name: &name, Bio: &bio})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Carla M.", updated.Name)
		require.NotNil(t, updated.Bio)
		assert.Equal(t, bio, *updated.Bio)
		assert.Nil(t, updated.Title)

		// Neither the patch values nor the returned view alias the stored record.
		bio = "overwritten by caller"
		*updated.Bio = "overwritten through view"

		again, err := s.Users.PublicView(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Carla M.", again.Name)
		require.NotNil(t, again.Bio)
		assert.Equal(t, "Física, 3º año", *again.Bio)
		*again.Bio = "overwritten through lookup"
		byEmail, err := s.Users.GetByEmail(ctx, "carla@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Física, 3º año", *byEmail.Bio)

		// The credential survives a profile update.
		ok, err := s.Users.VerifyCredentials(ctx, "carla@example.com", "secret123")
		require.NoError(t, err)
		assert.NotNil(t, ok)

		missing, err := s.Users.Update(ctx, 9999, models.UserPatch{Name: &name})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestContract_CommunityMembership(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u1 := mustUser(t, s, "u1@example.com")
		u2 := mustUser(t, s, "u2@example.com")
		c := mustCommunity(t, s, "Economía")
		assert.Equal(t, 0, c.MemberCount)

		require.NoError(t, s.Communities.Join(ctx, c.ID, u1.ID))
		require.NoError(t, s.Communities.Join(ctx, c.ID, u1.ID))
		got, err := s.Communities.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.MemberCount, "join is idempotent")

		require.NoError(t, s.Communities.Join(ctx, c.ID, u2.ID))
		got, _ = s.Communities.Get(ctx, c.ID)
		assert.Equal(t, 2, got.MemberCount)

		require.NoError(t, s.Communities.Leave(ctx, c.ID, u1.ID))
		require.NoError(t, s.Communities.Leave(ctx, c.ID, u1.ID))
		got, _ = s.Communities.Get(ctx, c.ID)
		assert.Equal(t, 1, got.MemberCount, "leave is idempotent")

		err = s.Communities.Join(ctx, 9999, u1.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		absent, err := s.Communities.Get(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, absent)

		exists, err := s.Communities.Exists(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = s.Communities.Exists(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestContract_UnknownUserRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		const ghost = uint(4242)
		u := mustUser(t, s, "real@example.com")
		c := mustCommunity(t, s, "Fantasmas")
		p := mustPost(t, s, c.ID, u.ID, "t", "c")
		cm := mustComment(t, s, p.ID, u.ID, nil, "hola")

		assert.True(t, models.IsCode(s.Communities.Join(ctx, c.ID, ghost), models.CodeNotFound), "join")
		err := s.Posts.Create(ctx, &models.Post{CommunityID: c.ID, AuthorID: ghost, Title: "t", Content: "c"})
		assert.True(t, models.IsCode(err, models.CodeNotFound), "post create")
		_, err = s.Posts.Vote(ctx, p.ID, ghost, models.VoteUp)
		assert.True(t, models.IsCode(err, models.CodeNotFound), "post vote")
		_, err = s.Posts.ToggleBookmark(ctx, p.ID, ghost)
		assert.True(t, models.IsCode(err, models.CodeNotFound), "bookmark")
		err = s.Comments.Create(ctx, &models.Comment{PostID: p.ID, AuthorID: ghost, Content: "x"})
		assert.True(t, models.IsCode(err, models.CodeNotFound), "comment create")
		_, err = s.Comments.Vote(ctx, cm.ID, ghost, models.VoteDown)
		assert.True(t, models.IsCode(err, models.CodeNotFound), "comment vote")
		_, err = s.Onboarding.Save(ctx, &models.OnboardingPreference{UserID: ghost})
		assert.True(t, models.IsCode(err, models.CodeNotFound), "onboarding save")

		// Nothing was written on behalf of the unknown user.
		community, err := s.Communities.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, community.MemberCount)
		posts, err := s.Posts.List(ctx, PostFilter{Limit: 10}, 0)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, 0, posts[0].Upvotes)
		assert.Equal(t, 1, posts[0].CommentsCount)
		comment, err := s.Comments.Get(ctx, cm.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, comment.Downvotes)
	})
}

func TestContract_CommunitySearchOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		users := []*models.User{
			mustUser(t, s, "a@example.com"),
			mustUser(t, s, "b@example.com"),
			mustUser(t, s, "c@example.com"),
		}
		small := mustCommunity(t, s, "club de ajedrez")
		big := mustCommunity(t, s, "club de lectura")
		tieA := mustCommunity(t, s, "club alfa")
		other := mustCommunity(t, s, "finanzas")

		for _, u := range users {
			require.NoError(t, s.Communities.Join(ctx, big.ID, u.ID))
		}
		require.NoError(t, s.Communities.Join(ctx, small.ID, users[0].ID))
		require.NoError(t, s.Communities.Join(ctx, tieA.ID, users[1].ID))
		require.NoError(t, s.Communities.Join(ctx, other.ID, users[1].ID))

		found, err := s.Communities.Search(ctx, "CLUB", 10)
		require.NoError(t, err)
		names := make([]string, len(found))
		for i, c := range found {
			names[i] = c.Name
		}
		assert.Equal(t, []string{"club de lectura", "club alfa", "club de ajedrez"}, names)
		assert.Equal(t, 3, found[0].MemberCount)

		limited, err := s.Communities.Search(ctx, "club", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		all, err := s.Communities.Search(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := s.Communities.Search(ctx, "100%", 10)
		require.NoError(t, err)
		assert.Empty(t, none)

		accented := mustCommunity(t, s, "ÁLGEBRA LINEAL")
		mustCommunity(t, s, "apple")
		mustCommunity(t, s, "Zebra")
		for _, q := range []string{"álgebra", "Álgebra Lineal", "ÁLGEBRA"} {
			found, err := s.Communities.Search(ctx, q, 10)
			require.NoError(t, err)
			require.Len(t, found, 1, q)
			assert.Equal(t, accented.ID, found[0].ID)
		}

		// Equal member counts fall back to byte order of the name.
		all, err = s.Communities.Search(ctx, "", 10)
		require.NoError(t, err)
		names = make([]string, len(all))
		for i, c := range all {
			names[i] = c.Name
		}
		assert.Equal(t, []string{
			"club de lectura", "club alfa", "club de ajedrez", "finanzas",
			"Zebra", "apple", "ÁLGEBRA LINEAL",
		}, names)
	})
}

func TestContract_PostListing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "author@example.com")
		c1 := mustCommunity(t, s, "Física")
		c2 := mustCommunity(t, s, "Química")

		first := mustPost(t, s, c1.ID, u.ID, "Parcial de mecánica", "¿Alguien tiene apuntes?")
		second := mustPost(t, s, c2.ID, u.ID, "Laboratorio", "Informe de TITULACIÓN")
		third := mustPost(t, s, c1.ID, u.ID, "Horarios", "Cambió el aula al 100% virtual")
		hidden := mustPost(t, s, c1.ID, u.ID, "Oculto", "mecánica oculta")
		_, err := s.Posts.UpdateStatus(ctx, hidden.ID, models.PostStatusHidden)
		require.NoError(t, err)

		assert.Equal(t, models.PostStatusActive, first.Status)
		assert.Equal(t, models.VoteStatusNone, first.VoteStatus)

		all, err := s.Posts.List(ctx, PostFilter{Limit: 20}, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []uint{third.ID, second.ID, first.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})
		assert.Equal(t, "Física", all[0].CommunityName)

		inC1, err := s.Posts.List(ctx, PostFilter{CommunityID: &c1.ID, Limit: 20}, 0)
		require.NoError(t, err)
		assert.Len(t, inC1, 2)

		byTitle, err := s.Posts.List(ctx, PostFilter{Query: "MECÁN", Limit: 20}, 0)
		require.NoError(t, err)
		require.Len(t, byTitle, 1)
		assert.Equal(t, first.ID, byTitle[0].ID)

		byContent, err := s.Posts.List(ctx, PostFilter{Query: "informe", Limit: 20}, 0)
		require.NoError(t, err)
		require.Len(t, byContent, 1)
		assert.Equal(t, second.ID, byContent[0].ID)

		shouting := mustPost(t, s, c2.ID, u.ID, "MECÁNICA CUÁNTICA", "ÑANDÚ Y ÓRBITAS")
		accented, err := s.Posts.List(ctx, PostFilter{Query: "cuántica", Limit: 20}, 0)
		require.NoError(t, err)
		require.Len(t, accented, 1)
		assert.Equal(t, shouting.ID, accented[0].ID)
		accented, err = s.Posts.List(ctx, PostFilter{Query: "ñandú", Limit: 20}, 0)
		require.NoError(t, err)
		require.Len(t, accented, 1)
		assert.Equal(t, shouting.ID, accented[0].ID)
		_, err = s.Posts.UpdateStatus(ctx, shouting.ID, models.PostStatusDeleted)
		require.NoError(t, err)

		literalPercent, err := s.Posts.List(ctx, PostFilter{Query: "100%", Limit: 20}, 0)
		require.NoError(t, err)
		require.Len(t, literalPercent, 1)
		assert.Equal(t, third.ID, literalPercent[0].ID)

		limited, err := s.Posts.List(ctx, PostFilter{Limit: 1}, 0)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, third.ID, limited[0].ID)

		gotHidden, err := s.Posts.Get(ctx, hidden.ID, 0)
		require.NoError(t, err)
		require.NotNil(t, gotHidden, "hidden posts stay readable by id")
		assert.Equal(t, models.PostStatusHidden, gotHidden.Status)

		absent, err := s.Posts.Get(ctx, 9999, 0)
		require.NoError(t, err)
		assert.Nil(t, absent)
	})
}

func TestContract_PostVoting(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		author := mustUser(t, s, "author@example.com")
		v1 := mustUser(t, s, "v1@example.com")
		v2 := mustUser(t, s, "v2@example.com")
		c := mustCommunity(t, s, "Marketing")
		p := mustPost(t, s, c.ID, author.ID, "Título", "Contenido")

		view, err := s.Posts.Vote(ctx, p.ID, v1.ID, models.VoteUp)
		require.NoError(t, err)
		assert.Equal(t, 1, view.Upvotes)
		assert.Equal(t, 1, view.Score)
		assert.Equal(t, models.VoteStatusUp, view.VoteStatus)

		view, err = s.Posts.Vote(ctx, p.ID, v2.ID, models.VoteDown)
		require.NoError(t, err)
		assert.Equal(t, 1, view.Upvotes)
		assert.Equal(t, 1, view.Downvotes)
		assert.Equal(t, 0, view.Score)
		assert.Equal(t, models.VoteStatusDown, view.VoteStatus)

		// Re-voting replaces, never adds.
		view, err = s.Posts.Vote(ctx, p.ID, v1.ID, models.VoteDown)
		require.NoError(t, err)
		assert.Equal(t, 0, view.Upvotes)
		assert.Equal(t, 2, view.Downvotes)
		assert.Equal(t, -2, view.Score)
		view, err = s.Posts.Vote(ctx, p.ID, v1.ID, models.VoteDown)
		require.NoError(t, err)
		assert.Equal(t, 2, view.Downvotes)

		_, err = s.Posts.Vote(ctx, p.ID, author.ID, 0)
		assert.True(t, models.IsCode(err, models.CodeValidation))
		_, err = s.Posts.Vote(ctx, p.ID, author.ID, 2)
		assert.True(t, models.IsCode(err, models.CodeValidation))

		anon, err := s.Posts.Get(ctx, p.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, anon.Downvotes, "rejected votes write nothing")
		assert.Equal(t, models.VoteStatusNone, anon.VoteStatus)

		asAuthor, err := s.Posts.Get(ctx, p.ID, author.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VoteStatusNone, asAuthor.VoteStatus)

		asV1, err := s.Posts.Get(ctx, p.ID, v1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VoteStatusDown, asV1.VoteStatus)

		_, err = s.Posts.Vote(ctx, 9999, v1.ID, models.VoteUp)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})
}

func TestContract_Bookmarks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "reader@example.com")
		c := mustCommunity(t, s, "Negocios")
		p1 := mustPost(t, s, c.ID, u.ID, "Uno", "a")
		p2 := mustPost(t, s, c.ID, u.ID, "Dos", "b")

		action, err := s.Posts.ToggleBookmark(ctx, p1.ID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookmarkAdded, action)
		action, err = s.Posts.ToggleBookmark(ctx, p2.ID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookmarkAdded, action)

		saved, err := s.Posts.ListBookmarked(ctx, u.ID, 10)
		require.NoError(t, err)
		assert.Len(t, saved, 2)

		action, err = s.Posts.ToggleBookmark(ctx, p1.ID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookmarkRemoved, action)

		saved, err = s.Posts.ListBookmarked(ctx, u.ID, 10)
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, p2.ID, saved[0].ID)

		// Moderated posts keep their bookmark but drop out of the list.
		action, err = s.Posts.ToggleBookmark(ctx, p1.ID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookmarkAdded, action)
		_, err = s.Posts.UpdateStatus(ctx, p1.ID, models.PostStatusHidden)
		require.NoError(t, err)
		saved, err = s.Posts.ListBookmarked(ctx, u.ID, 10)
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, p2.ID, saved[0].ID)

		_, err = s.Posts.UpdateStatus(ctx, p2.ID, models.PostStatusDeleted)
		require.NoError(t, err)
		saved, err = s.Posts.ListBookmarked(ctx, u.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, saved)

		_, err = s.Posts.ToggleBookmark(ctx, 9999, u.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})
}

func TestContract_PostStatusMachine(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "mod@example.com")
		c := mustCommunity(t, s, "Moderación")
		p := mustPost(t, s, c.ID, u.ID, "t", "c")

		deleted, err := s.Posts.UpdateStatus(ctx, p.ID, models.PostStatusDeleted)
		require.NoError(t, err)
		assert.Equal(t, models.PostStatusDeleted, deleted.Status)

		for _, next := range []models.PostStatus{models.PostStatusActive, models.PostStatusHidden, models.PostStatusDeleted} {
			_, err = s.Posts.UpdateStatus(ctx, p.ID, next)
			assert.True(t, models.IsCode(err, models.CodeValidation), "deleted -> %s must be rejected", next)
		}

		_, err = s.Posts.UpdateStatus(ctx, 9999, models.PostStatusHidden)
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		list, err := s.Posts.List(ctx, PostFilter{Limit: 10}, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestContract_CommentThreads(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "talker@example.com")
		c := mustCommunity(t, s, "Informática")
		p := mustPost(t, s, c.ID, u.ID, "Go", "¿Goroutines?")
		other := mustPost(t, s, c.ID, u.ID, "Otro", "post")

		top := mustComment(t, s, p.ID, u.ID, nil, "  primera  ")
		assert.Equal(t, 0, top.Depth)
		assert.Equal(t, "primera", top.Content)
		assert.Equal(t, models.VoteStatusNone, top.VoteStatus)

		reply := mustComment(t, s, p.ID, u.ID, &top.ID, "respuesta")
		assert.Equal(t, 1, reply.Depth)

		err := s.Comments.Create(ctx, &models.Comment{PostID: other.ID, AuthorID: u.ID, ParentID: &top.ID, Content: "x"})
		assert.True(t, models.IsCode(err, models.CodeValidation), "parent on another post")

		missingParent := uint(9999)
		err = s.Comments.Create(ctx, &models.Comment{PostID: p.ID, AuthorID: u.ID, ParentID: &missingParent, Content: "x"})
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		err = s.Comments.Create(ctx, &models.Comment{PostID: 9999, AuthorID: u.ID, Content: "x"})
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		list, err := s.Comments.ListForPost(ctx, p.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, top.ID, list[0].ID)
		assert.Equal(t, reply.ID, list[1].ID)

		limited, err := s.Comments.ListForPost(ctx, p.ID, 1, 0)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		count, err := s.Comments.CountForPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		post, err := s.Posts.Get(ctx, p.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, post.CommentsCount)

		absent, err := s.Comments.Get(ctx, 9999, 0)
		require.NoError(t, err)
		assert.Nil(t, absent)
	})
}

func TestContract_CommentDepthLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "deep@example.com")
		c := mustCommunity(t, s, "Hilos")
		p := mustPost(t, s, c.ID, u.ID, "t", "c")

		parent := mustComment(t, s, p.ID, u.ID, nil, "depth 0")
		for depth := 1; depth <= models.MaxCommentDepth; depth++ {
			parent = mustComment(t, s, p.ID, u.ID, &parent.ID, fmt.Sprintf("depth %d", depth))
			assert.Equal(t, depth, parent.Depth)
		}

		err := s.Comments.Create(ctx, &models.Comment{PostID: p.ID, AuthorID: u.ID, ParentID: &parent.ID, Content: "too deep"})
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})
}

func TestContract_CommentVoting(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "c@example.com")
		voter := mustUser(t, s, "voter@example.com")
		c := mustCommunity(t, s, "Votos")
		p := mustPost(t, s, c.ID, u.ID, "t", "c")
		cm := mustComment(t, s, p.ID, u.ID, nil, "vótame")

		view, err := s.Comments.Vote(ctx, cm.ID, voter.ID, models.VoteUp)
		require.NoError(t, err)
		assert.Equal(t, 1, view.Score)
		assert.Equal(t, models.VoteStatusUp, view.VoteStatus)

		view, err = s.Comments.Vote(ctx, cm.ID, voter.ID, models.VoteDown)
		require.NoError(t, err)
		assert.Equal(t, 0, view.Upvotes)
		assert.Equal(t, 1, view.Downvotes)
		assert.Equal(t, -1, view.Score)

		_, err = s.Comments.Vote(ctx, cm.ID, voter.ID, 5)
		assert.True(t, models.IsCode(err, models.CodeValidation))
		_, err = s.Comments.Vote(ctx, 9999, voter.ID, models.VoteUp)
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		listed, err := s.Comments.ListForPost(ctx, p.ID, 10, voter.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, models.VoteStatusDown, listed[0].VoteStatus)
	})
}

func TestContract_BestComment(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "asker@example.com")
		c := mustCommunity(t, s, "Dudas")
		p := mustPost(t, s, c.ID, u.ID, "¿Pregunta?", "c")
		other := mustPost(t, s, c.ID, u.ID, "Otra", "c")
		answer := mustComment(t, s, p.ID, u.ID, nil, "respuesta")
		elsewhere := mustComment(t, s, other.ID, u.ID, nil, "otra")

		require.NoError(t, s.Posts.SetBestComment(ctx, p.ID, answer.ID))
		got, err := s.Posts.Get(ctx, p.ID, 0)
		require.NoError(t, err)
		require.NotNil(t, got.BestCommentID)
		assert.Equal(t, answer.ID, *got.BestCommentID)

		err = s.Posts.SetBestComment(ctx, p.ID, elsewhere.ID)
		assert.True(t, models.IsCode(err, models.CodeValidation))
		err = s.Posts.SetBestComment(ctx, p.ID, 9999)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
		err = s.Posts.SetBestComment(ctx, 9999, answer.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})
}

func TestContract_Onboarding(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Stores) {
		ctx := context.Background()
		u := mustUser(t, s, "new@example.com")

		initial, err := s.Onboarding.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, initial.Done)
		assert.Empty(t, initial.Careers)
		assert.NotNil(t, initial.Careers)
		assert.Nil(t, initial.Year)

		year := 2
		saved, err := s.Onboarding.Save(ctx, &models.OnboardingPreference{
			UserID:  u.ID,
			Done:    false,
			Careers: []string{"Física"},
			Year:    &year,
		})
		require.NoError(t, err)
		assert.True(t, saved.Done)

		got, err := s.Onboarding.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Done)
		assert.Equal(t, []string{"Física"}, got.Careers)
		require.NotNil(t, got.Year)
		assert.Equal(t, 2, *got.Year)
		assert.Equal(t, []uint{}, got.FavoriteCommunities)

		// Done cannot be forced and is recomputed on overwrite.
		cleared, err := s.Onboarding.Save(ctx, &models.OnboardingPreference{UserID: u.ID, Done: true})
		require.NoError(t, err)
		assert.False(t, cleared.Done)
		got, err = s.Onboarding.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.Done)
		assert.Nil(t, got.Year)
	})
}
