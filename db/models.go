package db

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type ResourceType string

const (
	ResourceTypeNotes         ResourceType = "notes"
	ResourceTypeQuestionPaper ResourceType = "question_paper"
	ResourceTypeAssignment    ResourceType = "assignment"
	ResourceTypeBook          ResourceType = "book"
	ResourceTypeLabManual     ResourceType = "lab_manual"
	ResourceTypeOther         ResourceType = "other"
)

var ResourceTypes = []ResourceType{
	ResourceTypeNotes,
	ResourceTypeQuestionPaper,
	ResourceTypeAssignment,
	ResourceTypeBook,
	ResourceTypeLabManual,
	ResourceTypeOther,
}

func (r ResourceType) Valid() bool {
	for _, resourceType := range ResourceTypes {
		if r == resourceType {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Document is the view of an uploaded file that the search subsystem reads.
// StorageID, ReviewedBy, ReviewedAt and RejectionReason are internal and never leave the service.
type Document struct {
	ID           string       `json:"id" bson:"_id"`
	Title        string       `json:"title" bson:"title"`
	Description  string       `json:"description,omitempty" bson:"description,omitempty"`
	Subject      string       `json:"subject" bson:"subject"`
	Tags         []string     `json:"tags" bson:"tags"`
	University   string       `json:"university,omitempty" bson:"university,omitempty"`
	Semester     string       `json:"semester" bson:"semester"`
	ResourceType ResourceType `json:"resource_type" bson:"resourceType"`
	Status       Status       `json:"status" bson:"status"`
	UploadedBy   string       `json:"uploaded_by" bson:"uploadedBy"`
	Views        int64        `json:"views" bson:"views"`
	Downloads    int64        `json:"downloads" bson:"downloads"`
	CreatedAt    time.Time    `json:"created_at" bson:"createdAt"`

	FileURL  string `json:"file_url,omitempty" bson:"fileUrl,omitempty"`
	FileType string `json:"file_type,omitempty" bson:"fileType,omitempty"`
	FileSize int64  `json:"file_size,omitempty" bson:"fileSize,omitempty"`

	StorageID       string     `json:"storage_id,omitempty" bson:"cloudinaryId,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty" bson:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty" bson:"reviewedAt,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty" bson:"rejectionReason,omitempty"`
}

// Searchable returns the projection used for index building and fuzzy matching.
func (d Document) Searchable() Document {
	return Document{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Subject:     d.Subject,
		Tags:        d.Tags,
	}
}

type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortRecent    SortKey = "recent"
	SortPopular   SortKey = "popular"
	SortDownloads SortKey = "downloads"
)

func (s SortKey) Valid() bool {
	return s == SortRelevance || s == SortRecent || s == SortPopular || s == SortDownloads
}

// Filter restricts a listing to approved documents.
// Subject, Semester and University are case-insensitive substring matches, ResourceType is exact.
// A nil IDs slice means no restriction; an empty non-nil slice matches nothing.
type Filter struct {
	Subject         string
	Semester        string
	University      string
	ResourceType    ResourceType
	ExcludeUploader string
	IDs             []string
}

type ListQuery struct {
	Filter Filter
	Sort   SortKey
	Skip   int
	Limit  int
}
