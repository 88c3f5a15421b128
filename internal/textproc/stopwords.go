package textproc

// IsStopword reports whether a lower-cased token is an English stopword.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "ain", "all", "am", "an", "and", "any",
	"are", "aren", "as", "at", "be", "because", "been", "before", "being", "below", "between",
	"both", "but", "by", "can", "couldn", "did", "didn", "do", "does", "doesn", "doing", "don",
	"down", "during", "each", "few", "for", "from", "further", "had", "hadn", "has", "hasn",
	"have", "haven", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "if", "in", "into", "is", "isn", "it", "its", "itself", "just", "ll", "me", "mightn",
	"more", "most", "mustn", "my", "myself", "needn", "no", "nor", "not", "now", "of", "off",
	"on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own", "re",
	"same", "shan", "she", "should", "shouldn", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "ve", "very", "was", "wasn", "we", "were",
	"weren", "what", "when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"won", "would", "wouldn", "you", "your", "yours", "yourself", "yourselves", "also", "may",
	"might", "must", "shall", "could", "however", "therefore", "thus", "et", "al", "etc",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
