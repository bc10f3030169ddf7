package crawler

import "net/url"

// fragmentPlaceholder is the bare "#" href, never worth a request.
const fragmentPlaceholder = "#"

// ShouldProcessURL applies the domain restriction. Host-less urls always pass, an
// unparseable url only passes when the crawl is not restricted.
func (j *CrawlJob) ShouldProcessURL(rawURL string) bool {
	if !j.stayInDomain {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return u.Host == j.seedDomain || u.Host == ""
}

// shouldEnqueue is the link-queueing filter applied to links found on a successful fetch.
func (j *CrawlJob) shouldEnqueue(link string) bool {
	if link == fragmentPlaceholder {
		return false
	}
	if _, seen := j.visited[link]; seen {
		return false
	}
	if _, queued := j.queued[link]; queued {
		return false
	}

	return j.ShouldProcessURL(link)
}
