package model

import "time"

type Cover struct {
	ID           string    `db:"id" json:"id"`
	OriginalName string    `db:"original_name" json:"original_name"`
	ImagePath    string    `db:"image_path" json:"image_path"`
	URL          string    `db:"url" json:"url"`
	ImageHash    string    `db:"image_hash" json:"image_hash"`
	UploadHash   string    `db:"upload_hash" json:"-"`
	Width        int       `db:"width" json:"width"`
	Height       int       `db:"height" json:"height"`
	Detected     bool      `db:"detected" json:"detected"`
	Rescaled     bool      `db:"rescaled" json:"rescaled"`
	Backend      string    `db:"backend" json:"backend"`
	OCRText      string    `db:"ocr_text" json:"ocr_text,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
