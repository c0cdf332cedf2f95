package ptpimg

// HostURL prefixes every hosted image address
const HostURL = "https://ptpimg.me/"

// Result is one entry of the upload response, e.g. {"code":"ulkm79","ext":"jpg"}
type Result struct {
	Code string `json:"code"`
	Ext  string `json:"ext"`
}

// URL returns the public address of the uploaded image
func (r Result) URL() string {
	return HostURL + r.Code + "." + r.Ext
}

func resultURLs(results []Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL())
	}
	return urls
}
