package classify

// Entry is one row of a lookup table. Tables are ordered: when a key appears
// more than once, the last row wins.
type Entry struct {
	Key  string `json:"key"`
	Code string `json:"code"`
}

// Tables holds the raw lookup data used to build a Classifier.
type Tables struct {
	Manufacturers []Entry `json:"manufacturers"`
	Models        []Entry `json:"models"`
	Colors        []Entry `json:"colors"`
}

// DefaultTables returns the built-in lookup data.
func DefaultTables() Tables {
	return Tables{
		Manufacturers: append([]Entry(nil), defaultManufacturers...),
		Models:        append([]Entry(nil), defaultModels...),
		Colors:        append([]Entry(nil), defaultColors...),
	}
}

var defaultManufacturers = []Entry{
	{"FORD", "01"},
	{"VAUXHALL", "02"},
	{"VOLKSWAGEN", "03"},
	{"VW", "03"},
	{"TOYOTA", "04"},
	{"NISSAN", "05"},
	{"HONDA", "06"},
	{"PEUGEOT", "07"},
	{"RENAULT", "08"},
	{"CITROEN", "09"},
	{"FIAT", "10"},
	{"SKODA", "11"},
	{"SEAT", "12"},
	{"HYUNDAI", "13"},
	{"KIA", "14"},
	{"MAZDA", "15"},
	{"MITSUBISHI", "16"},
	{"SUZUKI", "17"},
	{"SUBARU", "18"},
	{"VOLVO", "19"},
	{"SAAB", "20"},
	{"MINI", "21"},
	{"LAND ROVER", "22"},
	{"JAGUAR", "23"},
	{"BMW", "24"},
	{"MERCEDES-BENZ", "25"},
	{"MERCEDES", "25"},
	{"AUDI", "26"},
	{"PORSCHE", "27"},
	{"LEXUS", "28"},
	{"DACIA", "29"},
	{"ALFA ROMEO", "30"},
	{"JEEP", "31"},
	{"TESLA", "32"},
	{"MG", "33"},
	{"SMART", "34"},
	{"CHEVROLET", "35"},
	{"CHRYSLER", "36"},
	{"DODGE", "37"},
	{"DS", "38"},
	{"CUPRA", "39"},
	{"POLESTAR", "40"},
}

// Model codes are numbered per manufacturer, so the same code is shared by
// unrelated models of different makes.
var defaultModels = []Entry{
	// Ford
	{"FIESTA", "01"},
	{"FOCUS", "02"},
	{"MONDEO", "03"},
	{"KUGA", "04"},
	{"PUMA", "05"},
	{"TRANSIT", "06"},
	{"RANGER", "07"},
	// Vauxhall
	{"CORSA", "01"},
	{"ASTRA", "02"},
	{"INSIGNIA", "03"},
	{"MOKKA", "04"},
	{"ZAFIRA", "05"},
	// Volkswagen
	{"POLO", "01"},
	{"GOLF", "02"},
	{"PASSAT", "03"},
	{"TIGUAN", "04"},
	{"T-ROC", "05"},
	{"TRANSPORTER", "06"},
	// Toyota
	{"YARIS", "01"},
	{"AURIS", "02"},
	{"COROLLA", "03"},
	{"RAV4", "04"},
	{"PRIUS", "05"},
	{"C-HR", "06"},
	// Nissan
	{"MICRA", "01"},
	{"JUKE", "02"},
	{"QASHQAI", "03"},
	{"X-TRAIL", "04"},
	{"LEAF", "05"},
	// Honda
	{"JAZZ", "01"},
	{"CIVIC", "02"},
	{"CR-V", "04"},
	{"HR-V", "05"},
	// Kia and Hyundai
	{"PICANTO", "01"},
	{"CEED", "02"},
	{"SPORTAGE", "03"},
	{"NIRO", "04"},
	{"I10", "01"},
	{"I20", "02"},
	{"I30", "03"},
	{"TUCSON", "04"},
	{"KONA", "05"},
	// Peugeot, Renault, Citroen
	{"208", "01"},
	{"308", "02"},
	{"2008", "03"},
	{"3008", "04"},
	{"CLIO", "01"},
	{"MEGANE", "02"},
	{"CAPTUR", "03"},
	{"C3", "01"},
	{"C4", "02"},
	{"BERLINGO", "03"},
	// BMW
	{"1 SERIES", "31"},
	{"2 SERIES", "32"},
	{"3 SERIES", "33"},
	{"4 SERIES", "34"},
	{"5 SERIES", "35"},
	{"7 SERIES", "36"},
	{"X1", "37"},
	{"X3", "38"},
	{"X5 E53", "39"},
	{"X5 E70", "40"},
	{"X5 F15", "41"},
	{"X5 G05", "42"},
	{"X6", "43"},
	{"I3", "44"},
	{"Z4", "45"},
	// Mercedes-Benz
	{"A CLASS", "01"},
	{"C CLASS", "02"},
	{"E CLASS", "03"},
	{"GLA", "04"},
	{"GLC", "05"},
	{"SPRINTER", "06"},
	// Audi
	{"A1", "01"},
	{"A3", "02"},
	{"A4", "03"},
	{"A6", "04"},
	{"Q3", "05"},
	{"Q5", "06"},
	{"Q7", "07"},
	// Others
	{"MINI HATCH", "01"},
	{"COUNTRYMAN", "02"},
	{"RANGE ROVER", "01"},
	{"DISCOVERY", "02"},
	{"DEFENDER", "03"},
	{"EVOQUE", "04"},
	{"XC40", "01"},
	{"XC60", "02"},
	{"XC90", "03"},
	{"OCTAVIA", "01"},
	{"FABIA", "02"},
	{"SUPERB", "03"},
	{"IBIZA", "01"},
	{"LEON", "02"},
	{"SANDERO", "01"},
	{"DUSTER", "02"},
	{"MODEL 3", "01"},
	{"MODEL Y", "02"},
	{"CX-5", "01"},
	{"MX-5", "02"},
	{"500", "01"},
	{"PANDA", "02"},
}

var defaultColors = []Entry{
	{"clear", "CL"},
	{"blue", "BL"},
	{"green", "GR"},
	{"bronze", "BZ"},
	{"grey", "GY"},
	{"gray", "GY"},
	{"light_green", "LG"},
	{"dark_blue", "DB"},
	{"solar_control", "SC"},
}
