// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package handler

import (
	"html/template"
	"net/http"
)

var playgroundTemplate = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>ucid GraphQL playground</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css">
  <script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root"></div>
  <script>
    window.addEventListener('load', function () {
      var scheme = window.location.protocol === 'https:' ? 'wss://' : 'ws://';
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: '/{{.Path}}',
        subscriptionEndpoint: scheme + window.location.host + '/{{.SubscriptionsPath}}'
      });
    });
  </script>
</body>
</html>
`))

// Playground - interactive query page
func (h *Handler) Playground(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := playgroundTemplate.Execute(w, struct {
		Path              string
		SubscriptionsPath string
	}{
		Path:              h.path,
		SubscriptionsPath: h.subscriptionsPath,
	})
	if nil != err {
		h.log.Errorf("playground template error: %s", err)
	}
}
