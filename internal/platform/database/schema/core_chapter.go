package schema

// CoreChapterTable represents the 'core.chapter' table
type CoreChapterTable struct {
	Table            string
	ID               string
	ComicID          string
	UploaderID       string
	Volume           string
	Number           string
	Title            string
	Status           string
	PagesCount       string
	CompressionRatio string
	PublishedAt      string
	CreatedAt        string
	UpdatedAt        string
	DeletedAt        string
}

// CoreChapter is the schema definition for core.chapter
var CoreChapter = CoreChapterTable{
	Table:            "core.chapter",
	ID:               "id",
	ComicID:          "comicid",
	UploaderID:       "uploaderid",
	Volume:           "volume",
	Number:           "chapternumber",
	Title:            "title",
	Status:           "status",
	PagesCount:       "pagescount",
	CompressionRatio: "compressionratio",
	PublishedAt:      "publishedat",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
	DeletedAt:        "deletedat",
}

func (t CoreChapterTable) Columns() []string {
	return []string{
		t.ID, t.ComicID, t.UploaderID, t.Volume, t.Number, t.Title, t.Status,
		t.PagesCount, t.CompressionRatio, t.PublishedAt, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
