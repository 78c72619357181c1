package mangadex

type relationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name     string `json:"name"`
		FileName string `json:"fileName"`
	} `json:"attributes"`
}

type mangaData struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string   `json:"title"`
		AltTitles   []map[string]string `json:"altTitles"`
		Description map[string]string   `json:"description"`
		Status      string              `json:"status"`
		Tags        []tagData           `json:"tags"`
	} `json:"attributes"`
	Relationships []relationship `json:"relationships"`
}

type tagData struct {
	ID         string `json:"id"`
	Attributes struct {
		Name  map[string]string `json:"name"`
		Group string            `json:"group"`
	} `json:"attributes"`
}

type mangaListResponse struct {
	Data   []mangaData `json:"data"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Total  int         `json:"total"`
}

type mangaResponse struct {
	Data mangaData `json:"data"`
}

type tagListResponse struct {
	Data []tagData `json:"data"`
}

type chapterData struct {
	ID         string `json:"id"`
	Attributes struct {
		Volume      *string `json:"volume"`
		Chapter     *string `json:"chapter"`
		Title       *string `json:"title"`
		PublishAt   string  `json:"publishAt"`
		ExternalURL *string `json:"externalUrl"`
		Pages       int     `json:"pages"`
	} `json:"attributes"`
	Relationships []relationship `json:"relationships"`
}

type feedResponse struct {
	Data   []chapterData `json:"data"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Total  int           `json:"total"`
}

type atHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
