package toc

import "maps"

// Item is a TOC node as authored in toc.yml or toc.md.
type Item struct {
	Name      string  `yaml:"name,omitempty"`
	Href      string  `yaml:"href,omitempty"`
	TopicUID  string  `yaml:"topicUid,omitempty"`
	TopicHref string  `yaml:"topicHref,omitempty"`
	TocHref   string  `yaml:"tocHref,omitempty"`
	Items     []*Item `yaml:"items,omitempty"`

	// Deprecated aliases.
	UID         string `yaml:"uid,omitempty"`
	Homepage    string `yaml:"homepage,omitempty"`
	HomepageUID string `yaml:"homepageUid,omitempty"`
}

// Node is a resolved TOC node. Href-like fields are rooted at the working
// folder ("~/dir/file.md"); the values as authored are kept in Original*.
type Node struct {
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	NameVariants map[string]string `json:"nameVariants,omitempty" yaml:"nameVariants,omitempty"`
	Href         string            `json:"href,omitempty" yaml:"href,omitempty"`
	TopicHref    string            `json:"topicHref,omitempty" yaml:"topicHref,omitempty"`
	TopicUID     string            `json:"topicUid,omitempty" yaml:"topicUid,omitempty"`
	TocHref      string            `json:"tocHref,omitempty" yaml:"tocHref,omitempty"`

	OriginalHref      string `json:"-" yaml:"-"`
	OriginalTopicHref string `json:"-" yaml:"-"`
	OriginalTocHref   string `json:"-" yaml:"-"`

	AggregatedHref string `json:"aggregatedHref,omitempty" yaml:"aggregatedHref,omitempty"`
	AggregatedUID  string `json:"aggregatedUid,omitempty" yaml:"aggregatedUid,omitempty"`
	// IncludedFrom is the TOC file an embedded subtree was cloned from.
	IncludedFrom string `json:"includedFrom,omitempty" yaml:"includedFrom,omitempty"`
	// HrefFromUID marks hrefs taken from a resolved topicUid; they are site
	// output URLs rather than source paths.
	HrefFromUID bool `json:"-" yaml:"-"`

	Items []*Node `json:"items,omitempty" yaml:"items,omitempty"`
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.NameVariants = maps.Clone(n.NameVariants)
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, child := range n.Items {
			c.Items[i] = child.Clone()
		}
	}
	return &c
}

// Walk visits n and its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Items {
		child.Walk(fn)
	}
}

// Resolved is the resolution result of one TOC file.
type Resolved struct {
	File string
	Root *Node
	// IsReferenceToc marks files only reached through embedding; they are not
	// written as top-level TOCs.
	IsReferenceToc bool
}
