package movie

// Character is a playable role within a movie.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description,omitempty"`
}

// Scene is one story beat of a movie, in narrative order.
type Scene struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Movie is a static catalog entry players build their story on.
type Movie struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Genre      string      `json:"genre"`
	Logline    string      `json:"logline"`
	Scenes     []Scene     `json:"scenes"`
	Characters []Character `json:"characters"`
}

// Seed provides the default catalog shipped with the server.
func Seed() []Movie {
	return []Movie{
		{
			ID:      "last-starfarer",
			Title:   "The Last Starfarer",
			Genre:   "science fiction",
			Logline: "A salvage crew finds a derelict colony ship whose course leads somewhere no chart admits exists.",
			Scenes: []Scene{
				{ID: "salvage-dock", Title: "The Salvage Dock", Description: "The crew boards the derelict through a breached cargo airlock."},
				{ID: "dark-corridors", Title: "Dark Corridors", Description: "Emergency lights flicker over frost-covered bulkheads and sealed doors."},
				{ID: "the-bridge", Title: "The Bridge", Description: "A navigation console still runs, plotting a course into an empty region of space."},
				{ID: "cryo-bay", Title: "The Cryo Bay", Description: "Rows of occupied pods, and one standing open."},
				{ID: "the-choice", Title: "The Choice", Description: "Follow the plotted course, or burn for home with what was found."},
			},
			Characters: []Character{
				{ID: "captain-reyes", Name: "Captain Reyes", Role: "salvage captain", Description: "Owes more than the ship is worth and knows it."},
				{ID: "juno", Name: "Juno", Role: "systems engineer", Description: "Talks to machines more easily than to people."},
				{ID: "brakk", Name: "Brakk", Role: "rig operator", Description: "Superstitious, strong, first to say the ship feels wrong."},
				{ID: "dr-osei", Name: "Dr. Osei", Role: "ship medic", Description: "Signed on to disappear; the derelict knows why."},
			},
		},
		{
			ID:      "midnight-heist",
			Title:   "Midnight Heist",
			Genre:   "crime thriller",
			Logline: "Four strangers are hired to steal a painting that the gallery's owner insists was never painted.",
			Scenes: []Scene{
				{ID: "the-meet", Title: "The Meet", Description: "A booth in the back of an all-night diner, an envelope of photographs."},
				{ID: "casing-the-gallery", Title: "Casing the Gallery", Description: "Cameras, guards, and a vault door a decade newer than the building."},
				{ID: "the-break-in", Title: "The Break-In", Description: "Ninety seconds of darkness bought with a city maintenance uniform."},
				{ID: "the-vault", Title: "The Vault", Description: "The painting is there. It is a portrait of one of the crew."},
				{ID: "the-double-cross", Title: "The Double-Cross", Description: "Sirens, a missing getaway car, and one phone that should not be ringing."},
			},
			Characters: []Character{
				{ID: "the-driver", Name: "Sal", Role: "driver", Description: "Never asks what's in the bag."},
				{ID: "the-fixer", Name: "Imogen", Role: "fixer", Description: "Put the crew together and won't say for whom."},
				{ID: "the-cracker", Name: "Deke", Role: "safecracker", Description: "Retired three times, still gets the calls."},
				{ID: "the-ghost", Name: "Wren", Role: "cat burglar", Description: "The portrait in the vault shares her face."},
			},
		},
		{
			ID:      "crown-of-embers",
			Title:   "Crown of Embers",
			Genre:   "fantasy",
			Logline: "The royal line is ash, and the crown has chosen a kitchen girl, a deserter, a thief, and a priest with no god.",
			Scenes: []Scene{
				{ID: "the-burning-keep", Title: "The Burning Keep", Description: "The old dynasty ends in fire and the crown rolls from the pyre unmelted."},
				{ID: "the-summons", Title: "The Summons", Description: "Four strangers wake with the same brand on their wrist."},
				{ID: "road-of-thorns", Title: "The Road of Thorns", Description: "The only pass to the capital, held by those who want no ruler at all."},
				{ID: "the-hollow-court", Title: "The Hollow Court", Description: "An empty throne room where the walls remember every coronation."},
				{ID: "the-crowning", Title: "The Crowning", Description: "The crown must be taken up, destroyed, or worn by all four at once."},
			},
			Characters: []Character{
				{ID: "ember-maid", Name: "Tansy", Role: "kitchen girl", Description: "Fed the old king every meal of his reign and was never once seen."},
				{ID: "oath-broken", Name: "Corvan", Role: "deserter", Description: "Left the field at Redford and has argued it was mercy ever since."},
				{ID: "gutter-king", Name: "Pell", Role: "thief", Description: "Already stole the crown once, years ago, and put it back."},
				{ID: "hollow-priest", Name: "Sister Ivo", Role: "priest", Description: "Her god went silent the night the keep burned."},
			},
		},
	}
}
