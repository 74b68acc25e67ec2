package models

type Task struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Heaviness int    `json:"heaviness"`
	Mandatory bool   `json:"mandatory"`
	// WeekOffset shifts the tiling of multi-week occurrence spans by whole
	// weeks so that sibling tasks of the same category can alternate.
	WeekOffset int `json:"week_offset,omitempty"`
}
