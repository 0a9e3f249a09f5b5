package compose

// FragmentKind distinguishes literal text from server-side references in
// catenate output.
type FragmentKind int

const (
	FragmentText FragmentKind = iota
	FragmentURL
)

func (k FragmentKind) String() string {
	if k == FragmentURL {
		return "url"
	}
	return "text"
}

// Fragment is one piece of a catenate upload: either literal message bytes
// or an RFC 5092 URL naming bytes the server already holds. Concatenating
// the text fragments with the bodies the URLs point at yields the exact raw
// message.
type Fragment struct {
	Kind FragmentKind
	Data []byte
}

// fragmentBuffer collects serializer output into fragments. Writes land in
// the trailing text fragment; a URL closes it and the next write opens a
// fresh one.
type fragmentBuffer struct {
	frags []Fragment
}

func (fb *fragmentBuffer) Write(p []byte) (int, error) {
	if n := len(fb.frags); n == 0 || fb.frags[n-1].Kind != FragmentText {
		fb.frags = append(fb.frags, Fragment{Kind: FragmentText})
	}
	last := &fb.frags[len(fb.frags)-1]
	last.Data = append(last.Data, p...)
	return len(p), nil
}

func (fb *fragmentBuffer) addURL(url string) {
	fb.frags = append(fb.frags, Fragment{Kind: FragmentURL, Data: []byte(url)})
}
