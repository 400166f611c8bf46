package domain

import "slices"

// AttachmentSet holds a document's attachment entries keyed by name. Each
// entry tracks its own lifecycle state, so the write path can diff the set
// against the server without separate added/removed collections. The zero
// value is ready to use. AttachmentSet is read and written by one goroutine
// at a time and doesn't need to be concurrency safe.
type AttachmentSet struct {
	entries map[string]*Attachment
}

// NewAttachmentSet returns an empty attachment set.
func NewAttachmentSet() *AttachmentSet {
	return &AttachmentSet{entries: make(map[string]*Attachment)}
}

// AddFile stages a file to be uploaded under the given name. An existing
// entry is replaced and marked Modified; a new entry is marked Added.
func (s *AttachmentSet) AddFile(name, contentType, localPath string) *Attachment {
	att := &Attachment{
		Name:        name,
		ContentType: contentType,
		LocalPath:   localPath,
		State:       AttachmentAdded,
	}
	if _, ok := s.get(name); ok {
		att.State = AttachmentModified
	}
	s.put(att)
	return att
}

// AddBytes stages inline content to be uploaded under the given name.
func (s *AttachmentSet) AddBytes(name, contentType string, content []byte) *Attachment {
	att := &Attachment{
		Name:        name,
		ContentType: contentType,
		Content:     content,
		State:       AttachmentAdded,
	}
	if _, ok := s.get(name); ok {
		att.State = AttachmentModified
	}
	s.put(att)
	return att
}

// Delete marks the named entry for deletion on the next write. An entry that
// was only staged locally is dropped immediately. Deleted entries stay in
// the set until the server confirms the deletion.
func (s *AttachmentSet) Delete(name string) {
	att, ok := s.get(name)
	if !ok {
		return
	}
	if att.State == AttachmentAdded {
		delete(s.entries, name)
		return
	}
	att.State = AttachmentDeleted
}

// Get returns the named entry.
func (s *AttachmentSet) Get(name string) (*Attachment, bool) {
	return s.get(name)
}

// Put inserts an entry as-is. Used by response hydration to install Clean
// entries reported by the server.
func (s *AttachmentSet) Put(att *Attachment) {
	s.put(att)
}

// Remove drops the named entry from the set.
func (s *AttachmentSet) Remove(name string) {
	delete(s.entries, name)
}

// MarkClean transitions the named entry to Clean after a confirmed upload.
func (s *AttachmentSet) MarkClean(name string) {
	if att, ok := s.get(name); ok {
		att.State = AttachmentClean
	}
}

// Names returns the entry names in lexical order.
func (s *AttachmentSet) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of entries, including Deleted ones awaiting
// confirmation.
func (s *AttachmentSet) Len() int {
	return len(s.entries)
}

// Pending returns the entries that need a server round-trip, uploads first,
// then deletions, each group in lexical name order. Uploads go first so a
// rename never races a stale revision as delete-then-add.
func (s *AttachmentSet) Pending() []*Attachment {
	var puts, dels []*Attachment
	for _, name := range s.Names() {
		att := s.entries[name]
		switch att.State {
		case AttachmentAdded, AttachmentModified:
			puts = append(puts, att)
		case AttachmentDeleted:
			dels = append(dels, att)
		}
	}
	return append(puts, dels...)
}

func (s *AttachmentSet) get(name string) (*Attachment, bool) {
	att, ok := s.entries[name]
	return att, ok
}

func (s *AttachmentSet) put(att *Attachment) {
	if s.entries == nil {
		s.entries = make(map[string]*Attachment)
	}
	s.entries[att.Name] = att
}
