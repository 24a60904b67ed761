package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bookshop/backend/models"
	"github.com/bookshop/backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockCatalogStore struct {
	books      []models.Book
	authors    map[primitive.ObjectID]models.Author
	categories map[primitive.ObjectID]models.Category
	tags       map[primitive.ObjectID]models.Tag
	users      map[primitive.ObjectID]models.User

	lastQuery store.BookQuery
}

func newMockCatalogStore() *mockCatalogStore {
	return &mockCatalogStore{
		authors:    make(map[primitive.ObjectID]models.Author),
		categories: make(map[primitive.ObjectID]models.Category),
		tags:       make(map[primitive.ObjectID]models.Tag),
		users:      make(map[primitive.ObjectID]models.User),
	}
}

func (m *mockCatalogStore) matches(b models.Book, q store.BookQuery) bool {
	if q.Owner != nil && b.UserID != *q.Owner {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(q.Search)) {
		return false
	}
	return true
}

func (m *mockCatalogStore) ListBooks(ctx context.Context, q store.BookQuery) ([]models.Book, error) {
	m.lastQuery = q
	var filtered []models.Book
	for _, b := range m.books {
		if m.matches(b, q) {
			filtered = append(filtered, b)
		}
	}
	if q.Offset >= int64(len(filtered)) {
		return nil, nil
	}
	filtered = filtered[q.Offset:]
	if q.Limit > 0 && int64(len(filtered)) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return filtered, nil
}

func (m *mockCatalogStore) CountBooks(ctx context.Context, q store.BookQuery) (int64, error) {
	var n int64
	for _, b := range m.books {
		if m.matches(b, q) {
			n++
		}
	}
	return n, nil
}

func (m *mockCatalogStore) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	for i := range m.books {
		if m.books[i].ID == id {
			return &m.books[i], nil
		}
	}
	return nil, nil
}

func (m *mockCatalogStore) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	b := *book
	b.ID = id
	m.books = append(m.books, b)
	return id, nil
}

func (m *mockCatalogStore) AssignTagToBook(ctx context.Context, bookID, tagID primitive.ObjectID) error {
	for i := range m.books {
		if m.books[i].ID != bookID {
			continue
		}
		for _, existing := range m.books[i].TagIDs {
			if existing == tagID {
				return nil
			}
		}
		m.books[i].TagIDs = append(m.books[i].TagIDs, tagID)
	}
	return nil
}

func (m *mockCatalogStore) AuthorByID(ctx context.Context, id primitive.ObjectID) (*models.Author, error) {
	if a, ok := m.authors[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *mockCatalogStore) CategoryByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	if c, ok := m.categories[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *mockCatalogStore) TagByID(ctx context.Context, id primitive.ObjectID) (*models.Tag, error) {
	if t, ok := m.tags[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *mockCatalogStore) CategoriesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error) {
	out := make(map[primitive.ObjectID]models.Category)
	for _, id := range ids {
		if c, ok := m.categories[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *mockCatalogStore) UsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *mockCatalogStore) TagsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Tag, error) {
	out := make(map[primitive.ObjectID]models.Tag)
	for _, id := range ids {
		if t, ok := m.tags[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (m *mockCatalogStore) addBook(title string, owner primitive.ObjectID, category primitive.ObjectID) models.Book {
	price, _ := primitive.ParseDecimal128("9.99")
	b := models.Book{
		ID:         primitive.NewObjectID(),
		Title:      title,
		Price:      price,
		CategoryID: category,
		UserID:     owner,
		CreatedAt:  time.Now(),
	}
	m.books = append(m.books, b)
	return b
}

func newTestCatalog() (*CatalogService, *mockCatalogStore) {
	db := newMockCatalogStore()
	return &CatalogService{Store: db}, db
}

func TestGetAllBooksPagination(t *testing.T) {
	svc, db := newTestCatalog()
	owner := primitive.NewObjectID()
	category := primitive.NewObjectID()
	db.categories[category] = models.Category{ID: category, Name: "Fiction"}
	for i := 0; i < 25; i++ {
		db.addBook("Book", owner, category)
	}

	page, err := svc.GetAllBooks(context.Background(), BookFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(page.Books), 10)
	assert.Equal(t, int64(25), page.Pagination.Total)
	assert.Equal(t, int64(3), page.Pagination.TotalPages)
	assert.Equal(t, int64(1), page.Pagination.Page)

	last, err := svc.GetAllBooks(context.Background(), BookFilters{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Books, 5)
	assert.Equal(t, int64(20), db.lastQuery.Offset)
}

func TestGetAllBooksDefaults(t *testing.T) {
	svc, db := newTestCatalog()

	page, err := svc.GetAllBooks(context.Background(), BookFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Page)
	assert.Equal(t, int64(10), page.Pagination.Limit)
	assert.Equal(t, int64(0), page.Pagination.Total)
	assert.Equal(t, int64(0), page.Pagination.TotalPages)
	assert.NotNil(t, page.Books)
	assert.Equal(t, int64(10), db.lastQuery.Limit)
}

func TestGetAllBooksSearch(t *testing.T) {
	svc, db := newTestCatalog()
	owner := primitive.NewObjectID()
	category := primitive.NewObjectID()
	db.addBook("Atomic Habits", owner, category)
	db.addBook("ATOMIC Physics", owner, category)
	db.addBook("Deep Work", owner, category)

	page, err := svc.GetAllBooks(context.Background(), BookFilters{Search: "atomic"})
	require.NoError(t, err)
	require.Len(t, page.Books, 2)
	for _, b := range page.Books {
		assert.Contains(t, strings.ToLower(b.Title), "atomic")
	}
	assert.Equal(t, int64(2), page.Pagination.Total)
}

func TestGetMyBooksScopesToOwnerWithSmallDefault(t *testing.T) {
	svc, db := newTestCatalog()
	mine := primitive.NewObjectID()
	other := primitive.NewObjectID()
	category := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		db.addBook("Mine", mine, category)
	}
	db.addBook("Theirs", other, category)

	page, err := svc.GetMyBooks(context.Background(), mine, BookFilters{})
	require.NoError(t, err)
	assert.Len(t, page.Books, 3)
	assert.Equal(t, int64(5), page.Pagination.Total)
	assert.Equal(t, int64(3), page.Pagination.Limit)
	require.NotNil(t, db.lastQuery.Owner)
	assert.Equal(t, mine, *db.lastQuery.Owner)
}

func TestGetBookByIDExpandsRelations(t *testing.T) {
	svc, db := newTestCatalog()
	owner := primitive.NewObjectID()
	author := primitive.NewObjectID()
	category := primitive.NewObjectID()
	tag := primitive.NewObjectID()
	db.users[owner] = models.User{ID: owner, Name: "Ana", Email: "ana@x.com"}
	db.authors[author] = models.Author{ID: author, Name: "James Clear"}
	db.categories[category] = models.Category{ID: category, Name: "Self-help"}
	db.tags[tag] = models.Tag{ID: tag, Name: "productivity"}

	book := db.addBook("Atomic Habits", owner, category)
	db.books[len(db.books)-1].AuthorID = author
	db.books[len(db.books)-1].TagIDs = []primitive.ObjectID{tag}

	detail, err := svc.GetBookByID(context.Background(), book.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Author)
	assert.Equal(t, "James Clear", detail.Author.Name)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "Self-help", detail.Category.Name)
	require.NotNil(t, detail.User)
	assert.Equal(t, "Ana", detail.User.Name)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "productivity", detail.Tags[0].Name)
	assert.Equal(t, "9.99", detail.Price)
}

func TestGetBookByIDNotFound(t *testing.T) {
	svc, _ := newTestCatalog()
	_, err := svc.GetBookByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestCreateBookChecksReferences(t *testing.T) {
	svc, db := newTestCatalog()
	owner := primitive.NewObjectID()
	author := primitive.NewObjectID()
	category := primitive.NewObjectID()
	db.authors[author] = models.Author{ID: author, Name: "James Clear"}
	db.categories[category] = models.Category{ID: category, Name: "Self-help"}

	valid := CreateBookInput{
		Title:      "Atomic Habits",
		Price:      "18.50",
		AuthorID:   author,
		CategoryID: category,
	}

	t.Run("unknown category", func(t *testing.T) {
		input := valid
		input.CategoryID = primitive.NewObjectID()
		_, err := svc.CreateBook(context.Background(), owner, input)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})

	t.Run("unknown author", func(t *testing.T) {
		input := valid
		input.AuthorID = primitive.NewObjectID()
		_, err := svc.CreateBook(context.Background(), owner, input)
		assert.ErrorIs(t, err, ErrAuthorNotFound)
	})

	t.Run("bad price", func(t *testing.T) {
		input := valid
		input.Price = "not-a-number"
		_, err := svc.CreateBook(context.Background(), owner, input)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("success", func(t *testing.T) {
		detail, err := svc.CreateBook(context.Background(), owner, valid)
		require.NoError(t, err)
		assert.Equal(t, "Atomic Habits", detail.Title)
		assert.Equal(t, "18.50", detail.Price)
		assert.Equal(t, "Self-help", detail.Category.Name)
		assert.Equal(t, "James Clear", detail.Author.Name)
		require.Len(t, db.books, 1)
		assert.Equal(t, owner, db.books[0].UserID)
	})
}

func TestAssignTagIdempotent(t *testing.T) {
	svc, db := newTestCatalog()
	owner := primitive.NewObjectID()
	category := primitive.NewObjectID()
	tag := primitive.NewObjectID()
	db.tags[tag] = models.Tag{ID: tag, Name: "productivity"}
	book := db.addBook("Atomic Habits", owner, category)

	require.NoError(t, svc.AssignTag(context.Background(), book.ID, tag))
	require.NoError(t, svc.AssignTag(context.Background(), book.ID, tag))
	assert.Len(t, db.books[0].TagIDs, 1)

	assert.ErrorIs(t, svc.AssignTag(context.Background(), primitive.NewObjectID(), tag), ErrBookNotFound)
	assert.ErrorIs(t, svc.AssignTag(context.Background(), book.ID, primitive.NewObjectID()), ErrTagNotFound)
}

func TestBookFiltersSortDoc(t *testing.T) {
	tests := []struct {
		name    string
		filters BookFilters
		field   string
		dir     int
	}{
		{"title asc", BookFilters{SortBy: "title", SortOrder: "asc"}, "title", 1},
		{"title desc", BookFilters{SortBy: "title", SortOrder: "desc"}, "title", -1},
		{"price desc", BookFilters{SortBy: "price", SortOrder: "desc"}, "price", -1},
		{"default is insertion order", BookFilters{}, "_id", 1},
		{"unknown field falls back", BookFilters{SortBy: "isbn"}, "_id", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.filters.SortDoc()
			require.Len(t, doc, 1)
			assert.Equal(t, tt.field, doc[0].Key)
			assert.Equal(t, tt.dir, doc[0].Value)
		})
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{50, 10, 5},
		{5, 3, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}
