package synthetic

// Airport is a reference location around which synthetic detections are placed.
type Airport struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Airports covers every continent the classifier knows about.
var Airports = []Airport{
	{Code: "BHX", Name: "Birmingham", Country: "UK", Lat: 52.453, Lon: -1.748},
	{Code: "GRU", Name: "Sao Paulo", Country: "Brazil", Lat: -23.435, Lon: -46.473},
	{Code: "LAX", Name: "Los Angeles", Country: "USA", Lat: 33.9416, Lon: -118.4085},
	{Code: "NRT", Name: "Tokyo Narita", Country: "Japan", Lat: 35.772, Lon: 140.392},
	{Code: "JNB", Name: "Johannesburg", Country: "South Africa", Lat: -26.133, Lon: 28.242},
	{Code: "SYD", Name: "Sydney", Country: "Australia", Lat: -33.9399, Lon: 151.1753},
	{Code: "TNR", Name: "Antananarivo", Country: "Madagascar", Lat: -18.7969, Lon: 47.4788},
	{Code: "MCM", Name: "McMurdo Station", Country: "Antarctica", Lat: -77.8419, Lon: 166.6863},
}
