package server

import (
	"html/template"
	"net/http"
	"strings"

	"subgate/config"
	"subgate/store"
)

var (
	formTpl       = template.Must(template.New("form").Parse(formPage))
	configuredTpl = template.Must(template.New("configured").Parse(configuredPage))
)

type formData struct {
	Action string
	Cfg    store.TenantConfig
	IsFTP  bool
}

func (s *Server) renderForm(w http.ResponseWriter, prefill store.TenantConfig, action string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = formTpl.Execute(w, formData{
		Action: action,
		Cfg:    prefill,
		IsFTP:  prefill.Kind != store.KindDrive,
	})
}

type configuredData struct {
	Key         string
	ManifestURL string
	InstallURL  string
	EditURL     string
}

func (s *Server) renderConfigured(w http.ResponseWriter, key string) {
	manifestURL := s.cfg.PublicURL + "/u/" + key + "/manifest.json"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = configuredTpl.Execute(w, configuredData{
		Key:         key,
		ManifestURL: manifestURL,
		InstallURL:  "stremio://" + strings.TrimPrefix(strings.TrimPrefix(manifestURL, "https://"), "http://"),
		EditURL:     s.cfg.PublicURL + "/u/" + key + "/configure",
	})
}

const formPage = `<!doctype html>
<html lang="en">
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>` + config.AddonName + `</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto;max-width:640px;margin:0 auto;padding:1rem}
label{display:block;margin:.6rem 0 .2rem}
input[type=text],input[type=password],select{width:100%;padding:.4rem;border:1px solid #ccc;border-radius:6px}
button{margin-top:1rem;padding:.5rem 1rem;border-radius:6px;border:1px solid #888;cursor:pointer}
#probe-result{margin-top:.6rem;white-space:pre-wrap;font-family:monospace;font-size:.85rem}
</style>
<h1>` + config.AddonName + `</h1>
<p>Point the addon at your own FTP server or Google Drive folder. Your
settings get a private install link.</p>
<form method="post" action="{{.Action}}">
  <label for="remoteKind">Source</label>
  <select name="remoteKind" id="remoteKind">
    <option value="ftp" {{if .IsFTP}}selected{{end}}>FTP server</option>
    <option value="drive" {{if not .IsFTP}}selected{{end}}>Google Drive folder</option>
  </select>

  <fieldset>
    <legend>FTP</legend>
    <label for="ftpHost">Host</label>
    <input type="text" name="ftpHost" id="ftpHost" value="{{.Cfg.FTPHost}}" placeholder="ftp.example.com or host:2121" />
    <label for="ftpUser">User</label>
    <input type="text" name="ftpUser" id="ftpUser" value="{{.Cfg.FTPUser}}" placeholder="anonymous" />
    <label for="ftpPass">Password</label>
    <input type="password" name="ftpPass" id="ftpPass" value="{{.Cfg.FTPPass}}" />
    <label><input type="checkbox" name="ftpSecure" {{if .Cfg.FTPSecure}}checked{{end}} /> Explicit TLS</label>
    <label for="ftpBase">Base path</label>
    <input type="text" name="ftpBase" id="ftpBase" value="{{.Cfg.FTPBase}}" placeholder="/subtitles" />
  </fieldset>

  <fieldset>
    <legend>Google Drive</legend>
    <label for="driveFolderId">Folder id</label>
    <input type="text" name="driveFolderId" id="driveFolderId" value="{{.Cfg.DriveFolderID}}" placeholder="root" />
    <label for="driveToken">Access token</label>
    <input type="password" name="driveToken" id="driveToken" value="{{.Cfg.DriveToken}}" />
  </fieldset>

  <button type="button" id="probe">Test connection</button>
  <button type="submit">Save &amp; install</button>
  <div id="probe-result"></div>
</form>
<script>
document.getElementById('probe').addEventListener('click', async () => {
  const out = document.getElementById('probe-result');
  out.textContent = 'testing…';
  const body = {
    remoteKind: document.getElementById('remoteKind').value,
    ftpHost: document.getElementById('ftpHost').value,
    ftpUser: document.getElementById('ftpUser').value,
    ftpPass: document.getElementById('ftpPass').value,
    ftpSecure: document.querySelector('[name=ftpSecure]').checked,
    ftpBase: document.getElementById('ftpBase').value,
    driveFolderId: document.getElementById('driveFolderId').value,
    driveToken: document.getElementById('driveToken').value,
  };
  const action = document.querySelector('form').getAttribute('action');
  const probeURL = action.replace(/\/configure$/, '/test-connection');
  try {
    const r = await fetch(probeURL, { method: 'POST', body: JSON.stringify(body) });
    out.textContent = JSON.stringify(await r.json(), null, 2);
  } catch (e) {
    out.textContent = String(e);
  }
});
</script>
</html>`

const configuredPage = `<!doctype html>
<html lang="en">
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>` + config.AddonName + ` — configured</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto;max-width:640px;margin:0 auto;padding:1rem}
code{background:#f4f4f4;padding:.15rem .3rem;border-radius:4px;word-break:break-all}
a.button{display:inline-block;margin-top:1rem;padding:.5rem 1rem;border:1px solid #888;border-radius:6px;text-decoration:none}
</style>
<h1>Configured ✔</h1>
<p>Your private key: <code>{{.Key}}</code></p>
<p>Manifest: <code>{{.ManifestURL}}</code></p>
<a class="button" href="{{.InstallURL}}">Install in Stremio</a>
<a class="button" href="{{.EditURL}}">Edit configuration</a>
</html>`
