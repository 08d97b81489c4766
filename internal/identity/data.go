package identity

// Word lists backing the generator. Picks are uniform over each list.

var firstNames = []string{
	"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael",
	"Linda", "William", "Elizabeth", "David", "Barbara", "Richard", "Susan",
	"Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen", "Daniel",
	"Nancy", "Matthew", "Lisa", "Anthony", "Betty", "Mark", "Margaret",
	"Donald", "Sandra", "Steven", "Ashley", "Paul", "Kimberly", "Andrew",
	"Emily", "Joshua", "Donna", "Kenneth", "Michelle", "Kevin", "Carol",
	"Brian", "Amanda", "George", "Melissa", "Edward", "Deborah", "Ronald",
	"Stephanie",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark",
	"Ramirez", "Lewis", "Robinson", "Walker", "Young", "Allen", "King",
	"Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores", "Green",
	"Adams", "Nelson", "Baker", "Hall", "Rivera", "Campbell", "Mitchell",
	"Carter", "Roberts",
}

// fallbackDomains are used when no live mailbox could be provisioned.
var fallbackDomains = []string{
	"gmail.com", "outlook.com", "yahoo.com", "proton.me", "icloud.com",
}

var interests = []string{
	"photography", "hiking", "cooking", "reading", "travel", "gardening",
	"cycling", "painting", "chess", "music", "running", "astronomy",
	"woodworking", "yoga", "baking", "film", "birdwatching", "climbing",
}

var bioAdjectives = []string{
	"curious", "avid", "passionate", "enthusiastic", "dedicated",
	"lifelong", "amateur", "weekend",
}

// bioTemplates use %s slots for (adjective, interest, interest).
var bioTemplates = []string{
	"A %s fan of %s who also enjoys %s.",
	"Genuinely %s about %s. Usually found enjoying %s on weekends.",
	"A %s enthusiast of %s, with a soft spot for %s.",
	"Always %s about %s, with time set aside for %s.",
}

const (
	passwordLower   = "abcdefghijkmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordDigits  = "23456789"
	passwordSymbols = "!@#$%^&*-_=+"
)
