package dev

// RuntimeScript is the browser-side runtime module served at the
// pipeline's runtime path. It maintains one <style> element per scope
// and subscribes to the hot update socket, re-applying CSS without
// re-evaluating style modules.
const RuntimeScript = `const styleElements = new Map();

export function injectStyle(meta, css) {
    var key = meta.filePath + (meta.debugId ? '$' + meta.debugId : '');
    var el = styleElements.get(key);
    if (!el) {
        el = document.createElement('style');
        el.setAttribute('data-vanilla-extract', key);
        document.head.appendChild(el);
        styleElements.set(key, el);
    }
    el.textContent = css;
}

var listeners = new Map();
var ws = null;
var reconnectDelay = 1000;
var maxReconnectDelay = 30000;

function dispatch(frame) {
    var handlers = listeners.get(frame.event);
    if (!handlers) {
        return;
    }
    handlers.forEach(function(handler) {
        handler(frame.data);
    });
}

function connect() {
    var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
    ws = new WebSocket(protocol + '//' + location.host + '/__hmr');

    ws.onopen = function() {
        reconnectDelay = 1000;
    };

    ws.onmessage = function(e) {
        var frame;
        try {
            frame = JSON.parse(e.data);
        } catch (err) {
            return;
        }
        if (frame.event === 'full-reload') {
            location.reload();
            return;
        }
        dispatch(frame);
    };

    ws.onclose = function() {
        ws = null;
        setTimeout(function() {
            reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
            if (listeners.size > 0) {
                connect();
            }
        }, reconnectDelay);
    };

    ws.onerror = function() {
        if (ws) {
            ws.close();
        }
    };
}

export function onStyleUpdate(event, handler) {
    if (!listeners.has(event)) {
        listeners.set(event, []);
    }
    listeners.get(event).push(handler);
    if (!ws) {
        connect();
    }
}
`
