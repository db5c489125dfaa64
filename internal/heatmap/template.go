package heatmap

import "html/template"

// Map constants
const (
	centerLat  = 39.8283
	centerLon  = -98.5795
	zoom       = 5
	radius     = 25
	blur       = 15
	minOpacity = 0.2
	maxOpacity = 0.9

	tileURL         = "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png"
	tileAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`

	// StateBordersURL is the GeoJSON drawn as the tooltip overlay
	StateBordersURL = "https://raw.githubusercontent.com/python-visualization/folium/master/examples/data/us-states.json"
)

var gradient = map[string]string{
	"0.2": "blue",
	"0.4": "lime",
	"0.6": "yellow",
	"0.8": "orange",
	"1.0": "red",
}

type pageData struct {
	Title       string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	Radius      int
	Blur        int
	MinOpacity  float64
	MaxOpacity  float64
	Gradient    map[string]string
	Points      [][3]float64
	Metrics     map[string]float64
	BordersURL  string
	TileURL     string
	Attribution string
}

var page = template.Must(template.New("heatmap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
<style>html, body, #map { width: 100%; height: 100%; margin: 0; padding: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var points = {{.Points}};
var metrics = {{.Metrics}};

var map = L.map("map").setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});

var tiles = L.tileLayer({{.TileURL}}, {
  attribution: {{.Attribution}},
  subdomains: "abcd",
  maxZoom: 20
}).addTo(map);

var heat = L.heatLayer(points, {
  radius: {{.Radius}},
  blur: {{.Blur}},
  minOpacity: {{.MinOpacity}},
  maxOpacity: {{.MaxOpacity}},
  gradient: {{.Gradient}}
}).addTo(map);

var control = L.control.layers({"cartodbpositron": tiles}, {"Heat": heat}).addTo(map);

fetch({{.BordersURL}})
  .then(function (resp) { return resp.json(); })
  .then(function (geo) {
    var borders = L.geoJSON(geo, {
      style: function () {
        return { fillOpacity: 0.1, weight: 0, color: "transparent" };
      },
      onEachFeature: function (feature, layer) {
        var name = feature.properties.name;
        var value = Object.prototype.hasOwnProperty.call(metrics, name) ? metrics[name] : "N/A";
        layer.bindTooltip("State: " + name + "<br>Metric: " + value);
        layer.on("mouseover", function () { layer.setStyle({ weight: 2, color: "blue", fillOpacity: 0.1 }); });
        layer.on("mouseout", function () { borders.resetStyle(layer); });
      }
    }).addTo(map);
    control.addOverlay(borders, "State Borders");
  })
  .catch(function () {});
</script>
</body>
</html>
`))
