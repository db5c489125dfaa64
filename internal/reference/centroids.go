package reference

import "github.com/healthdash/backend/internal/contracts"

// defaultCentroids places each state at its most populous city, which is
// where the heat is drawn.
var defaultCentroids = []contracts.Centroid{
	{Region: "Alabama", Latitude: 33.5207, Longitude: -86.8025},              // Birmingham
	{Region: "Alaska", Latitude: 61.2181, Longitude: -149.9003},              // Anchorage
	{Region: "Arizona", Latitude: 33.4484, Longitude: -112.0740},             // Phoenix
	{Region: "Arkansas", Latitude: 34.7465, Longitude: -92.2896},             // Little Rock
	{Region: "California", Latitude: 34.0522, Longitude: -118.2437},          // Los Angeles
	{Region: "Colorado", Latitude: 39.7392, Longitude: -104.9903},            // Denver
	{Region: "Connecticut", Latitude: 41.1865, Longitude: -73.1950},          // Bridgeport
	{Region: "Delaware", Latitude: 39.7447, Longitude: -75.5484},             // Wilmington
	{Region: "District of Columbia", Latitude: 38.9072, Longitude: -77.0369}, // Washington
	{Region: "Florida", Latitude: 30.3322, Longitude: -81.6557},              // Jacksonville
	{Region: "Georgia", Latitude: 33.7490, Longitude: -84.3880},              // Atlanta
	{Region: "Hawaii", Latitude: 21.3069, Longitude: -157.8583},              // Honolulu
	{Region: "Idaho", Latitude: 43.6150, Longitude: -116.2023},               // Boise
	{Region: "Illinois", Latitude: 41.8781, Longitude: -87.6298},             // Chicago
	{Region: "Indiana", Latitude: 39.7684, Longitude: -86.1581},              // Indianapolis
	{Region: "Iowa", Latitude: 41.5868, Longitude: -93.6250},                 // Des Moines
	{Region: "Kansas", Latitude: 37.6872, Longitude: -97.3301},               // Wichita
	{Region: "Kentucky", Latitude: 38.2527, Longitude: -85.7585},             // Louisville
	{Region: "Louisiana", Latitude: 29.9511, Longitude: -90.0715},            // New Orleans
	{Region: "Maine", Latitude: 43.6591, Longitude: -70.2568},                // Portland
	{Region: "Maryland", Latitude: 39.2904, Longitude: -76.6122},             // Baltimore
	{Region: "Massachusetts", Latitude: 42.3601, Longitude: -71.0589},        // Boston
	{Region: "Michigan", Latitude: 42.3314, Longitude: -83.0458},             // Detroit
	{Region: "Minnesota", Latitude: 44.9778, Longitude: -93.2650},            // Minneapolis
	{Region: "Mississippi", Latitude: 32.2988, Longitude: -90.1848},          // Jackson
	{Region: "Missouri", Latitude: 39.0997, Longitude: -94.5786},             // Kansas City
	{Region: "Montana", Latitude: 45.7833, Longitude: -108.5007},             // Billings
	{Region: "Nebraska", Latitude: 41.2565, Longitude: -95.9345},             // Omaha
	{Region: "Nevada", Latitude: 36.1699, Longitude: -115.1398},              // Las Vegas
	{Region: "New Hampshire", Latitude: 42.9956, Longitude: -71.4548},        // Manchester
	{Region: "New Jersey", Latitude: 40.7357, Longitude: -74.1724},           // Newark
	{Region: "New Mexico", Latitude: 35.0844, Longitude: -106.6504},          // Albuquerque
	{Region: "New York", Latitude: 40.7128, Longitude: -74.0060},             // New York City
	{Region: "North Carolina", Latitude: 35.2271, Longitude: -80.8431},       // Charlotte
	{Region: "North Dakota", Latitude: 46.8772, Longitude: -96.7898},         // Fargo
	{Region: "Ohio", Latitude: 39.9612, Longitude: -82.9988},                 // Columbus
	{Region: "Oklahoma", Latitude: 35.4676, Longitude: -97.5164},             // Oklahoma City
	{Region: "Oregon", Latitude: 45.5051, Longitude: -122.6750},              // Portland
	{Region: "Pennsylvania", Latitude: 39.9526, Longitude: -75.1652},         // Philadelphia
	{Region: "Rhode Island", Latitude: 41.8240, Longitude: -71.4128},         // Providence
	{Region: "South Carolina", Latitude: 32.7765, Longitude: -79.9311},       // Charleston
	{Region: "South Dakota", Latitude: 43.5446, Longitude: -96.7311},         // Sioux Falls
	{Region: "Tennessee", Latitude: 36.1627, Longitude: -86.7816},            // Nashville
	{Region: "Texas", Latitude: 29.7604, Longitude: -95.3698},                // Houston
	{Region: "Utah", Latitude: 40.7608, Longitude: -111.8910},                // Salt Lake City
	{Region: "Vermont", Latitude: 44.4759, Longitude: -73.2121},              // Burlington
	{Region: "Virginia", Latitude: 36.8529, Longitude: -75.9780},             // Virginia Beach
	{Region: "Washington", Latitude: 47.6062, Longitude: -122.3321},          // Seattle
	{Region: "West Virginia", Latitude: 38.3498, Longitude: -81.6326},        // Charleston
	{Region: "Wisconsin", Latitude: 43.0389, Longitude: -87.9065},            // Milwaukee
	{Region: "Wyoming", Latitude: 41.13998, Longitude: -104.82025},           // Cheyenne
	{Region: "Puerto Rico", Latitude: 18.4655, Longitude: -66.1057},          // San Juan
}
