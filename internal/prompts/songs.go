package prompts

// Traditional and public-domain songs only.
var builtin = []Song{
	{
		ID: "twinkle", Title: "Twinkle, Twinkle, Little Star", Artist: "Traditional", Difficulty: Easy,
		Lines:     []string{"Twinkle, twinkle, little star", "How I wonder what you are", "Up above the world so high", "Like a diamond in the sky"},
		BlankLine: 3,
	},
	{
		ID: "row-boat", Title: "Row, Row, Row Your Boat", Artist: "Traditional", Difficulty: Easy,
		Lines:     []string{"Row, row, row your boat", "Gently down the stream", "Merrily, merrily, merrily, merrily", "Life is but a dream"},
		BlankLine: 3,
	},
	{
		ID: "mary-lamb", Title: "Mary Had a Little Lamb", Artist: "Sarah Josepha Hale", Difficulty: Easy,
		Lines:     []string{"Mary had a little lamb", "Its fleece was white as snow", "And everywhere that Mary went", "The lamb was sure to go"},
		BlankLine: 3,
	},
	{
		ID: "macdonald", Title: "Old MacDonald Had a Farm", Artist: "Traditional", Difficulty: Easy,
		Lines:     []string{"Old MacDonald had a farm", "E-I-E-I-O", "And on that farm he had a cow", "E-I-E-I-O"},
		BlankLine: 2,
	},
	{
		ID: "london-bridge", Title: "London Bridge Is Falling Down", Artist: "Traditional", Difficulty: Easy,
		Lines:     []string{"London Bridge is falling down", "Falling down, falling down", "London Bridge is falling down", "My fair lady"},
		BlankLine: 3,
	},
	{
		ID: "clementine", Title: "Oh My Darling, Clementine", Artist: "Percy Montrose", Difficulty: Medium,
		Lines:     []string{"In a cavern, in a canyon", "Excavating for a mine", "Dwelt a miner forty-niner", "And his daughter Clementine"},
		BlankLine: 2,
	},
	{
		ID: "mountain", Title: "She'll Be Coming 'Round the Mountain", Artist: "Traditional", Difficulty: Medium,
		Lines:     []string{"She'll be coming 'round the mountain when she comes", "She'll be coming 'round the mountain when she comes", "She'll be driving six white horses when she comes"},
		BlankLine: 2,
	},
	{
		ID: "ball-game", Title: "Take Me Out to the Ball Game", Artist: "Jack Norworth", Difficulty: Medium,
		Lines:     []string{"Take me out to the ball game", "Take me out with the crowd", "Buy me some peanuts and Cracker Jack", "I don't care if I never get back"},
		BlankLine: 2,
	},
	{
		ID: "yankee-doodle", Title: "Yankee Doodle", Artist: "Traditional", Difficulty: Medium,
		Lines:     []string{"Yankee Doodle went to town", "A-riding on a pony", "Stuck a feather in his cap", "And called it macaroni"},
		BlankLine: 3,
	},
	{
		ID: "home-range", Title: "Home on the Range", Artist: "Brewster M. Higley", Difficulty: Hard,
		Lines:     []string{"Oh, give me a home where the buffalo roam", "Where the deer and the antelope play", "Where seldom is heard a discouraging word", "And the skies are not cloudy all day"},
		BlankLine: 2,
	},
	{
		ID: "camptown", Title: "Camptown Races", Artist: "Stephen Foster", Difficulty: Hard,
		Lines:     []string{"The Camptown ladies sing this song", "Doo-dah! Doo-dah!", "The Camptown racetrack's five miles long", "Oh, doo-dah day!"},
		BlankLine: 2,
	},
	{
		ID: "auld-lang-syne", Title: "Auld Lang Syne", Artist: "Robert Burns", Difficulty: Hard,
		Lines:     []string{"Should auld acquaintance be forgot", "And never brought to mind?", "Should auld acquaintance be forgot", "And auld lang syne?"},
		BlankLine: 1,
	},
	{
		ID: "jingle-bells", Title: "Jingle Bells", Artist: "James Lord Pierpont", Difficulty: Medium,
		Lines:     []string{"Dashing through the snow", "In a one-horse open sleigh", "O'er the fields we go", "Laughing all the way"},
		BlankLine: 3,
	},
}
