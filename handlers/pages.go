package handlers

import (
	"html/template"
	"net/http"

	"trustgateway/logger"
)

var authPageTemplate = template.Must(template.New("autenticar").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Autenticación de dispositivo</title>
</head>
<body>
<main>
<h1>Autenticación de dispositivo</h1>
<p>Ingrese el código de activación proporcionado por el administrador.</p>
<form id="form">
<input id="codigo" name="codigo" autocomplete="off" placeholder="XXXX-XXXX-XXXX-XXXX" required>
<button type="submit">Autorizar</button>
</form>
<p id="mensaje" role="status"></p>
</main>
<script>
document.getElementById('form').addEventListener('submit', async function (e) {
  e.preventDefault();
  var msg = document.getElementById('mensaje');
  var res = await fetch('{{.RedeemPath}}', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    credentials: 'same-origin',
    body: JSON.stringify({codigo: document.getElementById('codigo').value})
  });
  var data = await res.json().catch(function () { return {}; });
  if (res.ok && data.success) {
    msg.textContent = data.mensaje;
    window.location.href = '{{.HomePath}}';
  } else {
    msg.textContent = data.error || 'Error';
  }
});
</script>
</body>
</html>
`))

var vpnSetupTemplate = template.Must(template.New("vpn-setup").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Conexión VPN requerida</title>
</head>
<body>
<main>
<h1>Conexión VPN requerida</h1>
<p>Este sistema solo está disponible desde la red privada. Conéctese a la VPN e intente nuevamente.</p>
<p>Red esperada: <code>{{.Range}}</code></p>
<p><a href="{{.HomePath}}">Reintentar</a> · <a href="/api/debug-ip">Diagnóstico</a></p>
</main>
</body>
</html>
`))

// PageHandler는 인증 페이지와 VPN 안내 페이지를 렌더링한다.
type PageHandler struct {
	vpnRange string
}

// NewPageHandler는 페이지 핸들러를 생성한다.
func NewPageHandler(vpnRange string) *PageHandler {
	return &PageHandler{vpnRange: vpnRange}
}

// AuthPage 디바이스 인증 페이지
func (h *PageHandler) AuthPage(w http.ResponseWriter, r *http.Request) {
	render(w, authPageTemplate, map[string]string{
		"RedeemPath": "/api/autenticar",
		"HomePath":   "/",
	})
}

// VPNSetup VPN 연결 안내 페이지
func (h *PageHandler) VPNSetup(w http.ResponseWriter, r *http.Request) {
	render(w, vpnSetupTemplate, map[string]string{
		"Range":    h.vpnRange,
		"HomePath": "/",
	})
}

// Health 헬스체크
// @Summary 헬스체크
// @Tags 시스템
// @Produce json
// @Success 200 {object} models.APIResponse "정상"
// @Router /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"success","message":"Server is healthy"}`))
}

func render(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		logger.Error("Failed to render page %s: %v", tmpl.Name(), err)
	}
}
