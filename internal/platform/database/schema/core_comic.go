package schema

// CoreComicTable represents the 'core.comic' table
type CoreComicTable struct {
	Table       string
	ID          string
	Title       string
	Slug        string
	Status      string
	Description string
	CoverURL    string
	ViewCount   string
	CreatedAt   string
	UpdatedAt   string
	DeletedAt   string
}

// CoreComic is the schema definition for core.comic
var CoreComic = CoreComicTable{
	Table:       "core.comic",
	ID:          "id",
	Title:       "title",
	Slug:        "slug",
	Status:      "status",
	Description: "description",
	CoverURL:    "coverurl",
	ViewCount:   "viewcount",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
	DeletedAt:   "deletedat",
}

func (t CoreComicTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.Slug, t.Status, t.Description, t.CoverURL,
		t.ViewCount, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
