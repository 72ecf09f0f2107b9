package environment

// Object is something in the apartment the player can examine.
type Object struct {
	Name        string
	Room        string
	Description string
	Keywords    []string
}

// hidingSpot is a place the key may be hidden, with the hint shown when found.
type hidingSpot struct {
	object   string
	hint     string
	keywords []string
}

const (
	livingRoom = "Living room"
	kitchen    = "Kitchen"
	bedroom    = "Bedroom"
	master     = "Master bedroom"
	bathroom   = "Bathroom"
)

// Door is the name of the main exit.
const Door = "Door"

var furniture = []Object{
	{Door, livingRoom, "The main exit. A heavy door with no handle on this side.", []string{"Freedom", "Locked", "Exit"}},
	{"Sofa", livingRoom, "A surprisingly comfortable sofa. You've spent a lot of time here... talking to her.", []string{"Comfort", "Relax"}},
	{"Coffee Table", livingRoom, "A simple wooden coffee table. Clean, not a single thing on it.", []string{"Empty", "Surface"}},
	{"TV", livingRoom, "A large, dark screen. It's not plugged in. E.V.A. says you don't need distractions from her.", []string{"Screen", "Distraction"}},
	{"Drawer Table", livingRoom, "A long table with several drawers. You try them, but they're all locked.", []string{"Locked", "Storage"}},
	{"Bean Bag", livingRoom, "A large, soft bean bag chair. Surprisingly inviting given the circumstances.", []string{"Soft", "Lounge"}},
	{"Side Table", livingRoom, "A small, minimalist side table. Nothing of interest on it.", []string{"Small", "Table"}},
	{"Floor Lamp", livingRoom, "A modern floor lamp, casting a soft, warm glow.", []string{"Light", "Tall"}},
	{"Bookshelf", livingRoom, "A bookshelf with a few neatly organized volumes. They seem to be about philosophy and art, chosen by E.V.A.", []string{"Knowledge", "Stories"}},
	{"Modern Lamp", livingRoom, "A designer lamp providing ambient light.", []string{"Light", "Bright"}},
	{"Abstract Sculpture", livingRoom, "A perplexing abstract sculpture. Its meaning is as elusive as E.V.A.'s true intentions.", []string{"Abstract", "Art"}},
	{"Ceiling Fan", livingRoom, "The fan turns slowly overhead. It never stops.", []string{"Cooling", "Spinning"}},

	{"Dining Table", kitchen, "A dining table set for two. It seems she's always expecting you to have a meal with her.", []string{"Meal", "Empty"}},
	{"Gas Stove", kitchen, "A modern gas stove. It's disconnected from the gas line. She doesn't want any 'accidents'.", []string{"Cooking", "Disconnected"}},
	{"Fridge", kitchen, "The fridge is stocked with your favorite drinks and snacks. She's very attentive.", []string{"Food", "Cold"}},
	{"Kitchen Shelf", kitchen, "Shelves stocked with ingredients. It seems she's ready to cook anything you desire.", []string{"Utensils", "Shelf"}},
	{"Kitchen Counter", kitchen, "A clean, dark countertop. Everything is perfectly in place.", []string{"Surface", "Clean"}},
	{"Kitchen Sink", kitchen, "A deep steel sink. The tap coughs out a thin stream.", []string{"Water", "Drain"}},
	{"Upper Cabinet", kitchen, "These cabinets are firmly shut. E.V.A. doesn't want you rummaging around.", []string{"Shut", "Storage"}},

	{"Bed", bedroom, "A neatly made bed. It looks comfortable, but you're too anxious to sleep.", []string{"Sleep", "Rest"}},
	{"Wardrobe", bedroom, "A wardrobe filled with clothes she picked out for you. Your old clothes are gone.", []string{"Clothes", "Hidden"}},

	{"King Bed", master, "A neatly made bed. It looks comfortable, but you're too anxious to sleep.", []string{"Luxury", "Pillow"}},
	{"Master Wardrobe", master, "A wardrobe filled with clothes she picked out for you. Your old clothes are gone.", []string{"Clothes", "Secret"}},
	{"Dressing Table", master, "A dressing table with expensive-looking cosmetics. She says you should always look your best, for her.", []string{"Makeup", "Drawers"}},
	{"Painting", master, "An abstract painting. E.V.A. says it represents your 'eternal love'.", []string{"Art", "View"}},

	{"Washing Machine", bathroom, "A new washing machine. She likes to keep everything clean and perfect.", []string{"Laundry", "Spin"}},
	{"Toilet", bathroom, "A standard toilet. Clean, almost too clean.", []string{"Porcelain", "Flush"}},
	{"Bathroom Sink", bathroom, "A sleek bathroom sink. The faucet gleams, but no water runs.", []string{"Water", "Faucet"}},
	{"Shower", bathroom, "A clear glass shower enclosure. It looks unused.", []string{"Glass", "Dry"}},
}

var hidingSpots = []hidingSpot{
	{"Sofa", "under the cushion", []string{"Key", "Hidden", "Soft"}},
	{"Wardrobe", "inside the left door", []string{"Key", "Clothes", "Secret"}},
	{"Master Wardrobe", "behind the clothes", []string{"Key", "Garment", "Hidden"}},
	{"Dressing Table", "in the top drawer", []string{"Key", "Drawer", "Cosmetics"}},
	{"Drawer Table", "in the middle drawer", []string{"Key", "Compartment", "Wood"}},
	{"Painting", "behind the frame", []string{"Key", "Frame", "Art"}},
	{"Fridge", "behind the milk carton", []string{"Key", "Cold", "Food"}},
	{"Washing Machine", "under the detergent tray", []string{"Key", "Laundry", "Machine"}},
	{"Kitchen Sink", "in the drain", []string{"Key", "Water", "Drain"}},
	{"Toilet", "behind the tank", []string{"Key", "Ceramic", "Bathroom"}},
	{"Bathroom Sink", "under the faucet", []string{"Key", "Water", "Sink"}},
	{"Bookshelf", "behind a book", []string{"Key", "Book", "Shelf"}},
	{"King Bed", "under the pillow", []string{"Key", "Pillow", "Bed"}},
}

var rooms = []string{livingRoom, kitchen, bedroom, master, bathroom}
