package relevance

var positiveWords = set(
	"good", "great", "awesome", "amazing", "love", "loved", "lovely", "nice", "cool", "best",
	"excellent", "fantastic", "happy", "glad", "beautiful", "incredible", "wonderful", "fun",
	"thanks", "thank", "brilliant", "perfect", "exciting", "excited", "epic", "yay", "wow",
	"impressive", "hype", "congrats", "congratulations", "success", "successful", "win",
)

var negativeWords = set(
	"bad", "terrible", "awful", "hate", "hated", "worst", "boring", "sad", "angry", "ugly",
	"horrible", "stupid", "dumb", "fail", "failed", "failure", "broken", "wrong", "sucks",
	"annoying", "disappointed", "disappointing", "scary", "lame", "crash", "crashed", "explode",
	"exploded", "rud", "scrub", "scrubbed", "delay", "delayed",
)

var negators = set("not", "no", "never", "isn't", "wasn't", "don't", "doesn't", "didn't", "can't", "won't", "aren't")

// Sentiment scores folded tokens with a small polarity lexicon. The result is
// in [-1, 1]; zero means neutral or unknown. A negator flips the next word.
func Sentiment(tokens []string) float64 {
	var pos, neg int
	flip := false
	for _, t := range tokens {
		if _, ok := negators[t]; ok {
			flip = true
			continue
		}
		_, p := positiveWords[t]
		_, n := negativeWords[t]
		if flip {
			p, n = n, p
		}
		flip = false
		if p {
			pos++
		}
		if n {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
