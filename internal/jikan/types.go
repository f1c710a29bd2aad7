package jikan

// Image is a single image rendition.
type Image struct {
	ImageURL      string `json:"image_url,omitempty"`
	SmallImageURL string `json:"small_image_url,omitempty"`
	LargeImageURL string `json:"large_image_url,omitempty"`
}

// Images groups renditions by format.
type Images struct {
	JPG  Image `json:"jpg"`
	WebP Image `json:"webp,omitempty"`
}

// Named is a reference to a genre, studio or similar entity.
type Named struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Trailer points at a YouTube video.
type Trailer struct {
	YoutubeID string `json:"youtube_id"`
	URL       string `json:"url,omitempty"`
	EmbedURL  string `json:"embed_url,omitempty"`
}

// Aired describes the airing window.
type Aired struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	String string `json:"string"`
}

// Anime is a catalog entry.
type Anime struct {
	MalID         int     `json:"mal_id"`
	URL           string  `json:"url,omitempty"`
	Images        Images  `json:"images"`
	Trailer       Trailer `json:"trailer"`
	Title         string  `json:"title"`
	TitleEnglish  string  `json:"title_english"`
	TitleJapanese string  `json:"title_japanese"`
	Type          string  `json:"type"`
	Episodes      int     `json:"episodes"`
	Status        string  `json:"status"`
	Airing        bool    `json:"airing"`
	Aired         Aired   `json:"aired"`
	Duration      string  `json:"duration"`
	Rating        string  `json:"rating"`
	Score         float64 `json:"score"`
	ScoredBy      int     `json:"scored_by"`
	Rank          int     `json:"rank"`
	Popularity    int     `json:"popularity"`
	Synopsis      string  `json:"synopsis"`
	Season        string  `json:"season"`
	Year          int     `json:"year"`
	Genres        []Named `json:"genres"`
	Studios       []Named `json:"studios"`
}

// Person is a voice actor.
type Person struct {
	MalID  int    `json:"mal_id"`
	Name   string `json:"name"`
	Images Images `json:"images"`
}

// VoiceActor credits a person for a character in one language.
type VoiceActor struct {
	Person   Person `json:"person"`
	Language string `json:"language"`
}

// Character is a character of an anime.
type Character struct {
	MalID  int    `json:"mal_id"`
	Name   string `json:"name"`
	Images Images `json:"images"`
}

// CharacterRole is one entry of /anime/{id}/characters.
type CharacterRole struct {
	Character   Character    `json:"character"`
	Role        string       `json:"role"`
	VoiceActors []VoiceActor `json:"voice_actors"`
}

// Episode is one entry of /anime/{id}/episodes.
type Episode struct {
	MalID         int     `json:"mal_id"`
	Title         string  `json:"title"`
	TitleJapanese string  `json:"title_japanese,omitempty"`
	Aired         string  `json:"aired,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Filler        bool    `json:"filler"`
	Recap         bool    `json:"recap"`
}

// RecommendationEntry is the recommended anime.
type RecommendationEntry struct {
	MalID  int    `json:"mal_id"`
	URL    string `json:"url,omitempty"`
	Images Images `json:"images"`
	Title  string `json:"title"`
}

// Recommendation is one entry of /anime/{id}/recommendations.
type Recommendation struct {
	Entry RecommendationEntry `json:"entry"`
	URL   string              `json:"url,omitempty"`
	Votes int                 `json:"votes"`
}

// Genre is one entry of /genres/anime.
type Genre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Count int    `json:"count"`
}

// Pagination mirrors the catalog's pagination block.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page,omitempty"`
	Items           *struct {
		Count   int `json:"count"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	} `json:"items,omitempty"`
}

// Page is a list response.
type Page[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// AnimeQuery filters /anime.
type AnimeQuery struct {
	Q       string
	Type    string
	Rating  string
	Status  string
	Genres  string
	OrderBy string
	Sort    string
	Page    int
	Limit   int
}

// SeasonQuery filters /seasons/now.
type SeasonQuery struct {
	Filter string
	Page   int
	Limit  int
}

// UpcomingQuery filters /seasons/upcoming.
type UpcomingQuery struct {
	Filter            string
	ExcludeContinuing bool
	Page              int
	Limit             int
}

// TopQuery filters /top/anime.
type TopQuery struct {
	Type   string
	Filter string
	Page   int
	Limit  int
}

// RecommendationQuery tunes Recommendations. OrderBy defaults to popularity and Limit to 10.
type RecommendationQuery struct {
	OrderBy string
	Limit   int
}
