package service

import (
	"context"
	"time"

	"github.com/bookshop/backend/models"
	"github.com/bookshop/backend/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultPageSize applies to the public listing.
	DefaultPageSize = 10
	// MyBooksPageSize applies to the owner-scoped listing.
	MyBooksPageSize = 3
)

// CatalogStore is the slice of the store the catalog services need.
type CatalogStore interface {
	ListBooks(ctx context.Context, q store.BookQuery) ([]models.Book, error)
	CountBooks(ctx context.Context, q store.BookQuery) (int64, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	AssignTagToBook(ctx context.Context, bookID, tagID primitive.ObjectID) error
	AuthorByID(ctx context.Context, id primitive.ObjectID) (*models.Author, error)
	CategoryByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	TagByID(ctx context.Context, id primitive.ObjectID) (*models.Tag, error)
	CategoriesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error)
	UsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	TagsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Tag, error)
}

// CatalogService reads and writes the book catalog.
type CatalogService struct {
	Store CatalogStore
}

// BookFilters are the listing query parameters after route-level decoding.
type BookFilters struct {
	Page      int64
	Limit     int64
	Search    string
	SortBy    string // title, price, createdAt
	SortOrder string // asc, desc
}

// Normalize clamps page to >=1 and applies the default page size.
func (f BookFilters) Normalize(defaultLimit int64) BookFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	return f
}

// Offset is (page-1)*limit on the normalized filters.
func (f BookFilters) Offset() int64 {
	return (f.Page - 1) * f.Limit
}

// SortDoc maps sortBy/sortOrder to a Mongo sort. Unknown fields fall back to
// insertion order via _id, which tracks creation time.
func (f BookFilters) SortDoc() bson.D {
	dir := 1
	if f.SortOrder == "desc" {
		dir = -1
	}
	switch f.SortBy {
	case "title":
		return bson.D{{Key: "title", Value: dir}}
	case "price":
		return bson.D{{Key: "price", Value: dir}}
	default:
		return bson.D{{Key: "_id", Value: dir}}
	}
}

// Pagination is the metadata returned alongside every listing page.
type Pagination struct {
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// OwnerSummary is the slice of the owning user exposed on listings.
type OwnerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookItem is one listing row: the book with category/owner expanded and tag
// rows flattened to {id,name}.
type BookItem struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Price           string           `json:"price"`
	CoverImage      string           `json:"coverImage,omitempty"`
	PublicationYear int              `json:"publicationYear,omitempty"`
	Category        *models.Category `json:"category,omitempty"`
	User            *OwnerSummary    `json:"user,omitempty"`
	Tags            []models.Tag     `json:"tags"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// BookDetail additionally expands the author for single-book reads.
type BookDetail struct {
	BookItem
	Author *models.Author `json:"author,omitempty"`
}

// BookPage is a listing page plus its pagination metadata.
type BookPage struct {
	Books      []BookItem `json:"formattedBook"`
	Pagination Pagination `json:"pagination"`
}

// GetAllBooks returns one filtered, sorted page of the catalog together with
// total/page counts computed from the same predicate. An empty page is a
// valid result, not an error.
func (s *CatalogService) GetAllBooks(ctx context.Context, filters BookFilters) (*BookPage, error) {
	return s.listBooks(ctx, nil, filters.Normalize(DefaultPageSize))
}

// GetMyBooks is GetAllBooks narrowed to the owner, with a smaller default
// page size.
func (s *CatalogService) GetMyBooks(ctx context.Context, userID primitive.ObjectID, filters BookFilters) (*BookPage, error) {
	return s.listBooks(ctx, &userID, filters.Normalize(MyBooksPageSize))
}

func (s *CatalogService) listBooks(ctx context.Context, owner *primitive.ObjectID, f BookFilters) (*BookPage, error) {
	q := store.BookQuery{
		Owner:  owner,
		Search: f.Search,
		Sort:   f.SortDoc(),
		Limit:  f.Limit,
		Offset: f.Offset(),
	}
	books, err := s.Store.ListBooks(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.Store.CountBooks(ctx, q)
	if err != nil {
		return nil, err
	}

	items, err := s.expandBooks(ctx, books)
	if err != nil {
		return nil, err
	}
	return &BookPage{
		Books: items,
		Pagination: Pagination{
			Total:      total,
			TotalPages: TotalPages(total, f.Limit),
			Page:       f.Page,
			Limit:      f.Limit,
		},
	}, nil
}

// expandBooks joins category, owner, and tag records in three batched
// lookups instead of one round trip per row.
func (s *CatalogService) expandBooks(ctx context.Context, books []models.Book) ([]BookItem, error) {
	categoryIDs := make([]primitive.ObjectID, 0, len(books))
	userIDs := make([]primitive.ObjectID, 0, len(books))
	var tagIDs []primitive.ObjectID
	for _, b := range books {
		categoryIDs = append(categoryIDs, b.CategoryID)
		userIDs = append(userIDs, b.UserID)
		tagIDs = append(tagIDs, b.TagIDs...)
	}
	categories, err := s.Store.CategoriesByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.Store.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	tags, err := s.Store.TagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	items := make([]BookItem, 0, len(books))
	for _, b := range books {
		item := toBookItem(&b)
		if c, ok := categories[b.CategoryID]; ok {
			item.Category = &c
		}
		if u, ok := users[b.UserID]; ok {
			item.User = &OwnerSummary{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
		}
		for _, id := range b.TagIDs {
			if t, ok := tags[id]; ok {
				item.Tags = append(item.Tags, t)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// GetBookByID returns one book with author, category, owner, and tags
// expanded.
func (s *CatalogService) GetBookByID(ctx context.Context, id primitive.ObjectID) (*BookDetail, error) {
	book, err := s.Store.BookByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	items, err := s.expandBooks(ctx, []models.Book{*book})
	if err != nil {
		return nil, err
	}
	detail := &BookDetail{BookItem: items[0]}
	author, err := s.Store.AuthorByID(ctx, book.AuthorID)
	if err != nil {
		return nil, err
	}
	detail.Author = author
	return detail, nil
}

// CreateBookInput is the validated payload for a new book. Price arrives as a
// decimal string and is stored exactly.
type CreateBookInput struct {
	Title           string
	Description     string
	Price           string
	CoverImage      string
	PublicationYear int
	AuthorID        primitive.ObjectID
	CategoryID      primitive.ObjectID
}

// CreateBook persists a new book owned by userID. The referenced author and
// category must exist; the document store has no foreign keys, so the checks
// happen here and surface as 400-class domain errors.
func (s *CatalogService) CreateBook(ctx context.Context, userID primitive.ObjectID, input CreateBookInput) (*BookDetail, error) {
	price, err := primitive.ParseDecimal128(input.Price)
	if err != nil {
		return nil, ErrInvalidPrice
	}
	author, err := s.Store.AuthorByID(ctx, input.AuthorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, ErrAuthorNotFound
	}
	category, err := s.Store.CategoryByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	now := time.Now()
	book := &models.Book{
		Title:           input.Title,
		Description:     input.Description,
		Price:           price,
		CoverImage:      input.CoverImage,
		PublicationYear: input.PublicationYear,
		AuthorID:        input.AuthorID,
		CategoryID:      input.CategoryID,
		UserID:          userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	id, err := s.Store.InsertBook(ctx, book)
	if err != nil {
		return nil, err
	}
	book.ID = id

	item := toBookItem(book)
	item.Category = category
	return &BookDetail{BookItem: item, Author: author}, nil
}

// AssignTag links a tag to a book. Both must exist; repeating an assignment
// is a no-op.
func (s *CatalogService) AssignTag(ctx context.Context, bookID, tagID primitive.ObjectID) error {
	book, err := s.Store.BookByID(ctx, bookID)
	if err != nil {
		return err
	}
	if book == nil {
		return ErrBookNotFound
	}
	tag, err := s.Store.TagByID(ctx, tagID)
	if err != nil {
		return err
	}
	if tag == nil {
		return ErrTagNotFound
	}
	return s.Store.AssignTagToBook(ctx, bookID, tagID)
}

func toBookItem(b *models.Book) BookItem {
	return BookItem{
		ID:              b.ID.Hex(),
		Title:           b.Title,
		Description:     b.Description,
		Price:           b.Price.String(),
		CoverImage:      b.CoverImage,
		PublicationYear: b.PublicationYear,
		Tags:            []models.Tag{},
		CreatedAt:       b.CreatedAt,
	}
}
