package render

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
)

// 序列化为可直接嵌入 <script> 的 JSON（json.Marshal 默认转义 <>&）
func marshalTemplateJS(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return template.JS(""), err
	}
	return template.JS(b), nil
}

var pageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.legend { padding: 6px 8px; background: rgba(255,255,255,0.9); border-radius: 4px; font: 12px sans-serif; }
.legend i { display: inline-block; width: 14px; height: 14px; margin-right: 6px; vertical-align: middle; }
</style>
</head>
<body>
<div id="map"></div>
<script>
const artifact = {{.Artifact}};
const map = L.map('map').setView([artifact.frame.lat, artifact.frame.lon], artifact.frame.zoom);
L.tileLayer(artifact.tiles.url, { attribution: artifact.tiles.attribution, subdomains: 'abcd', maxZoom: 19 }).addTo(map);
L.geoJSON(artifact.features, {
  style: function (f) {
    return {
      fillColor: f.properties.fill,
      fillOpacity: artifact.fill_opacity,
      color: '#000000',
      weight: 1,
      opacity: artifact.line_opacity
    };
  }
}).addTo(map);
const legend = L.control({ position: 'topright' });
legend.onAdd = function () {
  const div = L.DomUtil.create('div', 'legend');
  const lg = artifact.legend;
  const title = document.createElement('strong');
  title.textContent = lg.title;
  div.appendChild(title);
  for (let i = 0; i + 1 < lg.labels.length; i++) {
    const row = document.createElement('div');
    const sw = document.createElement('i');
    sw.style.background = lg.colors[i];
    row.appendChild(sw);
    row.appendChild(document.createTextNode(lg.labels[i] + ' - ' + lg.labels[i + 1]));
    div.appendChild(row);
  }
  const nd = document.createElement('div');
  const sw = document.createElement('i');
  sw.style.background = lg.no_data_color;
  nd.appendChild(sw);
  nd.appendChild(document.createTextNode('pas de données'));
  div.appendChild(nd);
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))

// 文档注释：把地图产物写为独立的 Leaflet HTML 页面
// 约束：产物以 JSON 内联到脚本中；不启用要素提示框。
func WriteHTML(w io.Writer, m *Map) error {
	art, err := marshalTemplateJS(m)
	if err != nil {
		return err
	}
	return writePage(w, m.Legend.Title, art)
}

// WritePage：以已序列化的地图产物（如缓存命中的 JSON）生成页面
func WritePage(w io.Writer, title string, artifact []byte) error {
	if !json.Valid(artifact) {
		return errors.New("render: artifact is not valid JSON")
	}
	return writePage(w, title, template.JS(artifact))
}

func writePage(w io.Writer, title string, art template.JS) error {
	return pageTmpl.Execute(w, struct {
		Title    string
		Artifact template.JS
	}{Title: title, Artifact: art})
}
