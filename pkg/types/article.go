// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ArticleMetadata is the metadata.json file written by the download stage.
type ArticleMetadata struct {
	Title      string   `json:"Title"`
	PubDate    string   `json:"PubDate"`
	AuthorList []string `json:"AuthorList"`
}

// ArticleAbstract is the optional abstract.json file.
type ArticleAbstract struct {
	Text string `json:"text"`
}

// DownloadSummary is the results.json manifest written by the download stage.
type DownloadSummary struct {
	// Articles maps article identifier to its input directory.
	Articles map[string]string `json:"articles"`
}

// Manifest maps article identifier to the location of a stage output.
type Manifest map[string]string
