//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"github.com/lomavkin/annotai/avutil"
)

// Metadata holds container-level tags such as title, artist, or date.
type Metadata map[string]string

// readMetadata copies an AVDictionary into a map. An empty key together
// with AV_DICT_IGNORE_SUFFIX matches every entry, so chaining DictGet on
// the previous entry walks the whole dictionary.
func readMetadata(dict avutil.Dictionary) Metadata {
	if dict == nil {
		return nil
	}

	tags := make(Metadata)
	var prev avutil.DictionaryEntry
	for {
		entry := avutil.DictGet(dict, "", prev, avutil.DictIgnoreSuffix)
		if entry == nil {
			return tags
		}
		if key := avutil.DictEntryKey(entry); key != "" {
			tags[key] = avutil.DictEntryValue(entry)
		}
		prev = entry
	}
}
