package model

import "time"

type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	HTML        string    `json:"html,omitempty"`
}

type ReadingEntry struct {
	Title  string `yaml:"title" json:"title"`
	Author string `yaml:"author" json:"author"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	Year   int    `yaml:"year,omitempty" json:"year,omitempty"`
	Note   string `yaml:"note,omitempty" json:"note,omitempty"`
}

// ContactCard is the static payload disclosed by the contact widget
// once a submission passes verification. Values come from configuration,
// never from user input.
type ContactCard struct {
	Email     string `json:"email"`
	ResumeURL string `json:"resume_url,omitempty"`
}

// Draft is the in-progress, unsaved lead information a visitor types
// into the contact widget. It is held in session memory only and
// discarded on close or reveal.
type Draft struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}
