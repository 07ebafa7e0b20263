// File: internal/jazzslug/words.go
package jazzslug

var (
	styles = []string{
		"bebop", "swing", "cool", "modal", "fusion", "latin", "bossa", "free",
		"hardbop", "soul", "funk", "smooth", "gypsy", "dixie", "ragtime", "stride",
		"avant", "post", "neo", "acid", "nu", "ethio", "afro", "euro",
	}
	musicians = []string{
		"monk", "bird", "trane", "miles", "duke", "dizzy", "mingus", "ella",
		"billie", "oscar", "herbie", "wayne", "sonny", "dexter", "cannonball", "art",
		"max", "clifford", "kenny", "wes", "joe", "stan", "dave", "bill",
		"chick", "keith", "pat", "jaco", "tony", "elvin", "philly", "ron",
		"mccoy", "horace", "ahmad", "bud", "red", "hank", "lee", "freddie",
	}
	terms = []string{
		"tritone", "voicing", "changes", "head", "comp", "lick", "turnaround", "vamp",
		"bridge", "coda", "intro", "outro", "chorus", "verse", "tag", "shout",
		"break", "fill", "riff", "motif", "phrase", "line", "run", "arpeggio",
		"chord", "scale", "mode", "groove", "pocket", "feel", "time", "beat",
		"rhythm", "pulse", "accent", "ghost", "bend", "slide", "hammer", "pull",
		"slap", "pop", "strum", "pick", "bow", "pluck", "blow", "reed",
		"chart", "lead", "sheet", "fake", "real", "book", "gig", "set",
		"jam", "session", "sit", "shed", "woodshed", "practice", "chops", "ears",
	}
	instruments = []string{
		"keys", "bass", "drums", "horn", "sax", "trumpet", "guitar", "piano",
		"rhodes", "wurli", "organ", "synth", "vibes", "marimba", "congas", "bongos",
		"trombone", "flute", "clarinet", "alto", "tenor", "bari", "soprano", "cornet",
		"upright", "standup", "fender", "gibson", "archtop", "hollow", "snare", "kick",
		"hihat", "ride", "crash", "cymbal", "stick", "brush", "mallet", "pedal",
	}
	feels = []string{
		"blue", "smoky", "mellow", "hot", "slick", "velvet", "midnight", "golden",
		"silver", "deep", "high", "low", "fast", "slow", "soft", "loud",
		"dark", "bright", "warm", "cool", "sweet", "bitter", "salty", "spicy",
		"smooth", "rough", "sharp", "flat", "round", "square", "tight", "loose",
		"funky", "groovy", "swinging", "burning", "cooking", "simmering", "boiling", "steaming",
		"lazy", "easy", "breezy", "hazy", "crazy", "wild", "calm", "zen",
	}
	places = []string{
		"village", "harlem", "birdland", "mintons", "bluenote", "vanguard", "iridium", "apollo",
		"savoy", "cotton", "club", "lounge", "joint", "spot", "room", "basement",
		"corner", "alley", "street", "avenue", "lane", "way", "drive", "road",
		"paris", "tokyo", "berlin", "rio", "havana", "chicago", "orleans", "memphis",
	}
	times = []string{
		"dawn", "dusk", "noon", "night", "evening", "morning", "twilight", "sunset",
		"spring", "summer", "autumn", "winter", "monday", "friday", "saturday", "sunday",
		"early", "late", "after", "before", "during", "between", "around", "about",
	}
	things = []string{
		"note", "tone", "sound", "tune", "song", "piece", "number", "track",
		"record", "album", "disc", "vinyl", "wax", "tape", "mix", "master",
		"solo", "duo", "trio", "quartet", "quintet", "sextet", "septet", "octet",
		"band", "combo", "group", "ensemble", "unit", "crew", "cats", "players",
		"dream", "memory", "story", "tale", "legend", "myth", "spirit", "soul",
		"love", "heart", "mind", "body", "hand", "finger", "ear", "eye",
	}
	actions = []string{
		"swing", "bounce", "float", "glide", "soar", "fly", "jump", "leap",
		"walk", "strut", "stroll", "cruise", "coast", "drift", "flow", "stream",
		"sing", "hum", "whistle", "snap", "clap", "tap", "stomp", "dance",
		"play", "blow", "hit", "strike", "touch", "feel", "move", "groove",
	}
)
