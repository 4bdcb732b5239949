package build

import (
	"fmt"
	"html/template"
	"net"
	"strconv"
)

// RefreshSnippet returns the script debug pages embed to reload themselves
// when the refresh server sends "reload". Heartbeat frames are ignored.
func RefreshSnippet(host string, port int) template.HTML {
	url := "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	// #nosec G203 -- host and port come from the site configuration.
	return template.HTML(fmt.Sprintf(`<script>
(function () {
  var ws = new WebSocket(%q);
  ws.onmessage = function (event) {
    if (event.data === "reload") {
      window.location.reload();
    }
  };
  ws.onerror = function () {
    console.log("refresh: connection to %s failed");
  };
})();
</script>`, url, url))
}
