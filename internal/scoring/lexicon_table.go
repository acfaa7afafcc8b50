package scoring

// Valence table on the usual [-4, 4] lexicon scale; the scorer normalizes
// sums into [-1, 1]. Trimmed to vocabulary that actually shows up in posts
// and survey free text about shows.
var defaultValences = map[string]float64{
	// positive
	"good":         1.9,
	"great":        3.1,
	"greatest":     3.2,
	"awesome":      3.1,
	"amazing":      2.8,
	"incredible":   2.9,
	"excellent":    2.7,
	"fantastic":    2.6,
	"wonderful":    2.7,
	"perfect":      2.7,
	"brilliant":    2.8,
	"masterpiece":  3.4,
	"love":         3.2,
	"loved":        2.9,
	"loving":       2.9,
	"like":         1.5,
	"liked":        1.6,
	"enjoy":        2.2,
	"enjoyed":      2.3,
	"enjoyable":    1.9,
	"fun":          2.3,
	"funny":        1.9,
	"hilarious":    2.6,
	"beautiful":    2.9,
	"gorgeous":     3.0,
	"stunning":     2.7,
	"best":         3.2,
	"better":       1.9,
	"favorite":     2.0,
	"favourite":    2.0,
	"recommend":    1.7,
	"recommended":  1.5,
	"worth":        0.9,
	"gripping":     1.8,
	"thrilling":    1.4,
	"compelling":   1.8,
	"binged":       1.3,
	"bingeworthy":  2.1,
	"captivating":  2.2,
	"satisfying":   1.9,
	"solid":        1.4,
	"strong":       1.4,
	"clever":       1.9,
	"smart":        1.7,
	"fresh":        1.3,
	"impressive":   2.3,
	"impressed":    2.1,
	"happy":        2.7,
	"glad":         2.0,
	"excited":      2.2,
	"hooked":       1.8,
	"wow":          2.8,
	"yes":          1.7,
	"win":          2.8,
	"winner":       2.8,
	"underrated":   1.2,

	// negative
	"bad":            -2.5,
	"terrible":       -2.1,
	"awful":          -2.0,
	"horrible":       -2.5,
	"worst":          -3.1,
	"worse":          -2.1,
	"hate":           -2.7,
	"hated":          -3.2,
	"dislike":        -1.6,
	"disliked":       -1.8,
	"boring":         -1.3,
	"bored":          -1.4,
	"dull":           -1.7,
	"slow":           -0.8,
	"mess":           -1.5,
	"messy":          -1.4,
	"disappointing":  -2.2,
	"disappointed":   -2.1,
	"disappointment": -2.3,
	"annoying":       -1.8,
	"annoyed":        -1.7,
	"cringe":         -1.3,
	"cringey":        -1.4,
	"predictable":    -0.9,
	"cliche":         -1.0,
	"lazy":           -1.4,
	"weak":           -1.9,
	"flat":           -1.0,
	"bland":          -1.4,
	"stupid":         -2.4,
	"dumb":           -2.3,
	"ridiculous":     -1.4,
	"waste":          -2.0,
	"wasted":         -2.2,
	"unwatchable":    -3.0,
	"overrated":      -1.4,
	"pointless":      -2.0,
	"confusing":      -1.2,
	"confused":       -1.1,
	"rushed":         -1.1,
	"forgettable":    -1.5,
	"mediocre":       -1.3,
	"meh":            -0.9,
	"ugh":            -1.8,
	"nope":           -1.5,
	"fail":           -2.3,
	"failed":         -2.1,
	"failure":        -2.4,
	"flop":           -2.0,
	"ruined":         -2.4,
	"cancel":         -1.3,
	"cancelled":      -1.4,
	"sad":            -2.1,
	"angry":          -2.3,
	"cry":            -1.3,
	"painful":        -2.0,
	"garbage":        -2.8,
	"trash":          -2.6,
}

// Negators flip and dampen the next scored token within the window.
var defaultNegators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"neither": true,
	"nor":     true,
	"nothing": true,
	"nobody":  true,
	"isn't":   true,
	"isnt":    true,
	"wasn't":  true,
	"wasnt":   true,
	"aren't":  true,
	"arent":   true,
	"don't":   true,
	"dont":    true,
	"didn't":  true,
	"didnt":   true,
	"doesn't": true,
	"doesnt":  true,
	"can't":   true,
	"cant":    true,
	"won't":   true,
	"wont":    true,
	"without": true,
	"hardly":  true,
	"barely":  true,
}

// Boosters raise or lower the intensity of the next scored token.
var defaultBoosters = map[string]float64{
	"absolutely": 0.31,
	"amazingly":  0.27,
	"completely": 0.29,
	"extremely":  0.29,
	"incredibly": 0.29,
	"really":     0.27,
	"so":         0.23,
	"totally":    0.27,
	"truly":      0.27,
	"utterly":    0.29,
	"very":       0.29,
	"super":      0.27,
	"kinda":      -0.29,
	"kind":       -0.15,
	"sorta":      -0.29,
	"somewhat":   -0.29,
	"slightly":   -0.29,
	"almost":     -0.29,
	"mildly":     -0.27,
}
